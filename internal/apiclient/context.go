package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tickethub/tickethub-web/internal/store"
)

type tokenContextKey struct{}

// WithToken attaches the bearer token sent with every call made under ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// Meta is the pagination block of list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginated is the list envelope returned by the API.
type Paginated[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// StorePage converts the envelope into a store page.
func (p Paginated[T]) StorePage() store.Page[T] {
	return store.Page[T]{Items: p.Data, Page: p.Meta.Page, TotalPages: p.Meta.TotalPages, Total: p.Meta.Total}
}

// PagePath appends page and limit parameters, plus any non-empty extras, to path.
func PagePath(path string, page, limit int, extra url.Values) string {
	q := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
