package cart

// MaxQuantity caps a single line.
const MaxQuantity = 10

// LineItem is one event in the cart.
type LineItem struct {
	EventID    string  `json:"eventId"`
	EventTitle string  `json:"eventTitle"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   int     `json:"quantity"`
}

// Subtotal is the price of the line.
func (l LineItem) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Total sums the lines of a cart.
func Total(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// Count is the number of tickets in the cart.
func Count(items []LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func key(l LineItem) string { return l.EventID }
