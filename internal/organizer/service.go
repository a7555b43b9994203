// Package organizer serves the organizer's own events and event creation.
package organizer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tickethub/tickethub-web/internal/categories"
	"github.com/tickethub/tickethub-web/internal/events"
	"github.com/tickethub/tickethub-web/internal/store"
	"github.com/tickethub/tickethub-web/internal/venues"
)

// EventService is the slice of events.Service used here.
type EventService interface {
	ListByOrganizer(ctx context.Context, page, limit int) (store.Page[events.Event], error)
	Create(ctx context.Context, in events.Input) (*events.Event, error)
}

// VenueLister lists every venue.
type VenueLister interface {
	All(ctx context.Context) ([]venues.Venue, error)
}

// CategoryLister lists every category.
type CategoryLister interface {
	All(ctx context.Context) ([]categories.Category, error)
}

// FormOptions are the choices offered by the event form.
type FormOptions struct {
	Venues     []venues.Venue
	Categories []categories.Category
}

// Service coordinates the organizer views.
type Service struct {
	events     EventService
	venues     VenueLister
	categories CategoryLister
}

// NewService builds Service instance.
func NewService(ev EventService, vl VenueLister, cl CategoryLister) *Service {
	return &Service{events: ev, venues: vl, categories: cl}
}

// FormOptions loads venues and categories concurrently.
func (s *Service) FormOptions(ctx context.Context) (FormOptions, error) {
	var opts FormOptions
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.venues.All(ctx)
		opts.Venues = v
		return err
	})
	g.Go(func() error {
		c, err := s.categories.All(ctx)
		opts.Categories = c
		return err
	})
	if err := g.Wait(); err != nil {
		return FormOptions{}, err
	}
	return opts, nil
}

// NewStore builds the store of the organizer's own events.
func (s *Service) NewStore(observer store.Observer) *store.Collection[events.Event, struct{}] {
	return store.New(store.Options[events.Event, struct{}]{
		Name: "organizer_events",
		Fetch: func(ctx context.Context, q store.Query[struct{}]) (store.Page[events.Event], error) {
			return s.events.ListByOrganizer(ctx, q.Page, q.Limit)
		},
		Key:      events.Key,
		Observer: observer,
	})
}

// Create publishes an event through the store so the listing reflects it.
func (s *Service) Create(ctx context.Context, col *store.Collection[events.Event, struct{}], in events.Input) (store.Snapshot[events.Event, struct{}], error) {
	return col.Mutate(ctx, store.Mutation[events.Event]{
		Op:   store.OpAdd,
		Item: events.Event{Title: in.Title, StartsAt: in.StartsAt, Price: in.Price, Status: events.StatusDraft},
		Send: func(ctx context.Context, _ []events.Event) (events.Event, error) {
			created, err := s.events.Create(ctx, in)
			if err != nil {
				return events.Event{}, err
			}
			return *created, nil
		},
	})
}
