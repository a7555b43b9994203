package venues

import (
	"context"
	"strings"

	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/store"
)

// Service reads and creates venues through the API.
type Service struct {
	api apiclient.API
}

// NewService builds Service instance.
func NewService(api apiclient.API) *Service {
	return &Service{api: api}
}

// List returns one page of venues.
func (s *Service) List(ctx context.Context, page, limit int) (store.Page[Venue], error) {
	var resp apiclient.Paginated[Venue]
	if err := s.api.Get(ctx, apiclient.PagePath("/venues", page, limit, nil), &resp); err != nil {
		return store.Page[Venue]{}, err
	}
	return resp.StorePage(), nil
}

// All returns every venue, walking the pages. Used to fill form selects.
func (s *Service) All(ctx context.Context) ([]Venue, error) {
	var all []Venue
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

// Create registers a venue.
func (s *Service) Create(ctx context.Context, in Input) (*Venue, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	var venue Venue
	if err := s.api.Post(ctx, "/venues", in, &venue); err != nil {
		return nil, err
	}
	return &venue, nil
}

// Count returns the number of venues.
func (s *Service) Count(ctx context.Context) (int, error) {
	page, err := s.List(ctx, 1, 1)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// NewStore builds a listing store backed by s.
func NewStore(s *Service, observer store.Observer) *store.Collection[Venue, struct{}] {
	return store.New(store.Options[Venue, struct{}]{
		Name: "venues",
		Fetch: func(ctx context.Context, q store.Query[struct{}]) (store.Page[Venue], error) {
			return s.List(ctx, q.Page, q.Limit)
		},
		Key:      func(v Venue) string { return v.ID },
		Observer: observer,
	})
}
