package shared

// Pager contains the links rendered under paginated listings.
type Pager struct {
	Page       int
	TotalPages int
	Prev       int
	Next       int
	Pages      []int
}

// NewPager computes pager metadata, showing at most window page numbers
// around the current page.
func NewPager(page, totalPages, window int) Pager {
	if totalPages < 1 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)
	if window < 1 {
		window = 5
	}
	start := max(page-window/2, 1)
	end := min(start+window-1, totalPages)
	start = max(end-window+1, 1)

	p := Pager{Page: page, TotalPages: totalPages}
	if page > 1 {
		p.Prev = page - 1
	}
	if page < totalPages {
		p.Next = page + 1
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, i)
	}
	return p
}
