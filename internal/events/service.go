package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/store"
)

// Service reads and creates events through the API.
type Service struct {
	api    apiclient.API
	cache  *Cache
	logger *slog.Logger
}

// NewService builds Service instance. cache may be nil.
func NewService(api apiclient.API, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: cache, logger: logger}
}

// List returns one page of the public listing. Responses are shared through
// the cache since they do not depend on the caller.
func (s *Service) List(ctx context.Context, filter Filter, page, limit int) (store.Page[Event], error) {
	path := apiclient.PagePath("/events", page, limit, url.Values{
		"status":     {string(filter.Status)},
		"search":     {strings.TrimSpace(filter.Search)},
		"categoryId": {filter.CategoryID},
	})
	key, err := s.cache.BuildKey(ctx, "list", path)
	if err != nil {
		return store.Page[Event]{}, fmt.Errorf("events: cache key: %w", err)
	}
	var resp apiclient.Paginated[Event]
	err = s.cache.FetchJSON(ctx, key, &resp, func(ctx context.Context) (any, error) {
		var fresh apiclient.Paginated[Event]
		if err := s.api.Get(ctx, path, &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return store.Page[Event]{}, err
	}
	return resp.StorePage(), nil
}

// Fetcher adapts List to a store fetcher.
func (s *Service) Fetcher() store.Fetcher[Event, Filter] {
	return func(ctx context.Context, q store.Query[Filter]) (store.Page[Event], error) {
		return s.List(ctx, q.Filter, q.Page, q.Limit)
	}
}

// Get returns one event.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := s.api.Get(ctx, "/events/"+url.PathEscape(id), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByOrganizer returns the events owned by the caller.
func (s *Service) ListByOrganizer(ctx context.Context, page, limit int) (store.Page[Event], error) {
	var resp apiclient.Paginated[Event]
	if err := s.api.Get(ctx, apiclient.PagePath("/events/organizer/me", page, limit, nil), &resp); err != nil {
		return store.Page[Event]{}, err
	}
	return resp.StorePage(), nil
}

// Create publishes a new event and invalidates cached listings.
func (s *Service) Create(ctx context.Context, in Input) (*Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	var event Event
	if err := s.api.Post(ctx, "/events", in, &event); err != nil {
		return nil, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		// Listings still expire after the cache TTL.
		s.logger.Warn("invalidate events cache", slog.String("event_id", event.ID), slog.Any("error", err))
	}
	return &event, nil
}

// Count returns the number of events with status.
func (s *Service) Count(ctx context.Context, status Status) (int, error) {
	page, err := s.List(ctx, Filter{Status: status}, 1, 1)
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// Warm loads the first pages of the active listing into the cache and
// reports how many pages were loaded.
func (s *Service) Warm(ctx context.Context, pages, limit int) (int, error) {
	warmed := 0
	for p := 1; p <= pages; p++ {
		page, err := s.List(ctx, Filter{Status: StatusActive}, p, limit)
		if err != nil {
			return warmed, fmt.Errorf("events: warm page %d: %w", p, err)
		}
		warmed++
		if p >= page.TotalPages {
			break
		}
	}
	return warmed, nil
}

// Key identifies an event inside a store.
func Key(e Event) string { return e.ID }

// NewStore builds a listing store backed by s.
func NewStore(s *Service, observer store.Observer) *store.Collection[Event, Filter] {
	return store.New(store.Options[Event, Filter]{
		Name:     "events",
		Fetch:    s.Fetcher(),
		Key:      Key,
		Observer: observer,
	})
}
