package categories

import (
	"context"
	"strings"

	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/store"
)

// Service reads and creates categories through the API.
type Service struct {
	api apiclient.API
}

// NewService builds Service instance.
func NewService(api apiclient.API) *Service {
	return &Service{api: api}
}

// List returns one page of categories.
func (s *Service) List(ctx context.Context, page, limit int) (store.Page[Category], error) {
	var resp apiclient.Paginated[Category]
	if err := s.api.Get(ctx, apiclient.PagePath("/categories", page, limit, nil), &resp); err != nil {
		return store.Page[Category]{}, err
	}
	return resp.StorePage(), nil
}

// All returns every category.
func (s *Service) All(ctx context.Context) ([]Category, error) {
	var all []Category
	for page := 1; ; page++ {
		resp, err := s.List(ctx, page, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if page >= resp.TotalPages || len(resp.Items) == 0 {
			return all, nil
		}
	}
}

// Create registers a category.
func (s *Service) Create(ctx context.Context, in Input) (*Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	var category Category
	if err := s.api.Post(ctx, "/categories", in, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// Count returns the number of categories.
func (s *Service) Count(ctx context.Context) (int, error) {
	page, err := s.List(ctx, 1, 1)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// NewStore builds a listing store backed by s.
func NewStore(s *Service, observer store.Observer) *store.Collection[Category, struct{}] {
	return store.New(store.Options[Category, struct{}]{
		Name: "categories",
		Fetch: func(ctx context.Context, q store.Query[struct{}]) (store.Page[Category], error) {
			return s.List(ctx, q.Page, q.Limit)
		},
		Key:      func(c Category) string { return c.ID },
		Observer: observer,
	})
}
