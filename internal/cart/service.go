package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tickethub/tickethub-web/internal/events"
	"github.com/tickethub/tickethub-web/internal/store"
)

// ErrNotOnSale is returned when adding an event that is not active.
var ErrNotOnSale = errors.New("cart: event is not on sale")

// ErrInvalidQuantity is returned for quantities outside 1..MaxQuantity.
var ErrInvalidQuantity = fmt.Errorf("cart: quantity must be between 1 and %d", MaxQuantity)

// EventReader looks up the event being added.
type EventReader interface {
	Get(ctx context.Context, id string) (*events.Event, error)
}

// Service opens carts.
type Service struct {
	repo     Repository
	events   EventReader
	observer store.Observer
}

// NewService builds Service instance.
func NewService(repo Repository, reader EventReader, observer store.Observer) *Service {
	return &Service{repo: repo, events: reader, observer: observer}
}

// Cart is the cart of one user. Changes are shown immediately and rolled
// back when they cannot be persisted. Changes run one at a time so the stored
// document always matches the last confirmed lines.
type Cart struct {
	userID string
	repo   Repository
	events EventReader
	items  *store.Collection[LineItem, struct{}]

	mu sync.Mutex
}

// Open loads the cart of userID.
func (s *Service) Open(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{userID: userID, repo: s.repo, events: s.events}
	c.items = store.New(store.Options[LineItem, struct{}]{
		Name: "cart",
		Key:  key,
		Fetch: func(ctx context.Context, _ store.Query[struct{}]) (store.Page[LineItem], error) {
			items, err := s.repo.Load(ctx, userID)
			if err != nil {
				return store.Page[LineItem]{}, err
			}
			return store.Page[LineItem]{Items: items, Page: 1, TotalPages: 1, Total: len(items)}, nil
		},
		Observer: s.observer,
	})
	if _, err := c.items.Fetch(ctx, struct{}{}, 1, 0); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current lines.
func (c *Cart) Snapshot() store.Snapshot[LineItem, struct{}] {
	return c.items.Snapshot()
}

// Add puts quantity tickets of eventID in the cart, on top of any already there.
func (c *Cart) Add(ctx context.Context, eventID string, quantity int) (store.Snapshot[LineItem, struct{}], error) {
	if quantity < 1 {
		return c.Snapshot(), ErrInvalidQuantity
	}
	event, err := c.events.Get(ctx, eventID)
	if err != nil {
		return c.Snapshot(), err
	}
	if event.Status != events.StatusActive {
		return c.Snapshot(), ErrNotOnSale
	}
	line := LineItem{EventID: event.ID, EventTitle: event.Title, UnitPrice: event.Price, Quantity: quantity}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.Snapshot().Items {
		if existing.EventID == line.EventID {
			line.Quantity += existing.Quantity
		}
	}
	if line.Quantity > MaxQuantity {
		return c.Snapshot(), ErrInvalidQuantity
	}
	return c.mutateLocked(ctx, store.OpAdd, line)
}

// SetQuantity changes a line. A quantity of zero removes it.
func (c *Cart) SetQuantity(ctx context.Context, eventID string, quantity int) (store.Snapshot[LineItem, struct{}], error) {
	if quantity == 0 {
		return c.Remove(ctx, eventID)
	}
	if quantity < 0 || quantity > MaxQuantity {
		return c.Snapshot(), ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var line LineItem
	for _, existing := range c.Snapshot().Items {
		if existing.EventID == eventID {
			line = existing
		}
	}
	if line.EventID == "" {
		line.EventID = eventID
	}
	line.Quantity = quantity
	return c.mutateLocked(ctx, store.OpUpdate, line)
}

// Remove drops a line.
func (c *Cart) Remove(ctx context.Context, eventID string) (store.Snapshot[LineItem, struct{}], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutateLocked(ctx, store.OpRemove, LineItem{EventID: eventID})
}

// mutateLocked must be called with c.mu held.
func (c *Cart) mutateLocked(ctx context.Context, op store.Op, line LineItem) (store.Snapshot[LineItem, struct{}], error) {
	return c.items.Mutate(ctx, store.Mutation[LineItem]{
		Op:         op,
		Item:       line,
		Optimistic: true,
		Send: func(ctx context.Context, next []LineItem) (LineItem, error) {
			return line, c.repo.Save(ctx, c.userID, next)
		},
	})
}
