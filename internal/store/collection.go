// Package store holds server-fetched collections for views. A Collection
// applies only the newest issued fetch and reconciles mutations per entity in
// issue order.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrSuperseded is returned to callers whose fetch or mutation result was
// discarded because a newer request was issued.
var ErrSuperseded = errors.New("store: superseded by a newer request")

// ErrUnknownItem is returned when updating or removing an item that is not in
// the collection.
var ErrUnknownItem = errors.New("store: item not in collection")

// Error is the typed failure kept on a store after a fetch or mutation fails.
type Error struct {
	Store string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Query is the input of a fetch.
type Query[F any] struct {
	Filter F
	Page   int
	Limit  int
}

// Page is one response of a fetch.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	Total      int
}

// Fetcher reads one page from the backing API.
type Fetcher[T any, F any] func(ctx context.Context, q Query[F]) (Page[T], error)

// Snapshot is a read-only copy of a collection handed to views.
type Snapshot[T any, F any] struct {
	Items       []T
	Filter      F
	CurrentPage int
	TotalPages  int
	Total       int
	Limit       int
	Loaded      bool
	IsLoading   bool
	Err         error
}

// Observer receives store events, e.g. for metrics.
type Observer interface {
	FetchSuperseded(store string)
}

// Options configures a Collection.
type Options[T any, F any] struct {
	Name     string
	Fetch    Fetcher[T, F]
	Key      func(T) string
	Observer Observer
}

// Collection is a mutex-guarded paginated collection.
type Collection[T any, F any] struct {
	name     string
	fetch    Fetcher[T, F]
	key      func(T) string
	observer Observer

	mu        sync.Mutex
	seq       uint64
	inflight  int
	items     []T
	filter    F
	page      int
	pages     int
	total     int
	limit     int
	loaded    bool
	err       error
	entitySeq map[string]uint64
	pending   map[string]*pendingEntity[T]
}

// pendingEntity is the last confirmed state of a key while mutations for it
// are in flight. Failed mutations restore it.
type pendingEntity[T any] struct {
	count    int
	item     T
	had      bool
	idx      int
	restored bool
}

// New constructs a Collection. Fetch and Key are required.
func New[T any, F any](opts Options[T, F]) *Collection[T, F] {
	if opts.Fetch == nil {
		panic("store: fetcher required")
	}
	if opts.Key == nil {
		panic("store: key function required")
	}
	return &Collection[T, F]{
		name:      opts.Name,
		fetch:     opts.Fetch,
		key:       opts.Key,
		observer:  opts.Observer,
		entitySeq: make(map[string]uint64),
		pending:   make(map[string]*pendingEntity[T]),
	}
}

// Name returns the store name.
func (c *Collection[T, F]) Name() string { return c.name }

// Fetch reads a page and replaces the collection with it when this call is
// still the newest issued fetch. Results of superseded calls are dropped and
// ErrSuperseded is returned with the current snapshot.
func (c *Collection[T, F]) Fetch(ctx context.Context, filter F, page, limit int) (Snapshot[T, F], error) {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.inflight++
	c.mu.Unlock()

	result, err := c.fetch(ctx, Query[F]{Filter: filter, Page: page, Limit: limit})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if seq != c.seq {
		if c.observer != nil {
			c.observer.FetchSuperseded(c.name)
		}
		return c.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		c.err = &Error{Store: c.name, Op: "fetch", Err: err}
		return c.snapshotLocked(), c.err
	}
	c.items = slices.Clone(result.Items)
	c.filter = filter
	c.limit = limit
	c.total = result.Total
	c.pages = result.TotalPages
	if c.pages < 1 {
		c.pages = 1
	}
	c.page = result.Page
	if c.page < 1 {
		c.page = page
	}
	c.page = min(max(c.page, 1), c.pages)
	c.loaded = true
	c.err = nil
	return c.snapshotLocked(), nil
}

// Seed replaces the collection without going through the fetcher and
// invalidates any outstanding fetch.
func (c *Collection[T, F]) Seed(filter F, page Page[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.items = slices.Clone(page.Items)
	c.filter = filter
	c.total = page.Total
	c.pages = max(page.TotalPages, 1)
	c.page = min(max(page.Page, 1), c.pages)
	c.loaded = true
	c.err = nil
}

// Reset empties the collection and invalidates outstanding requests.
func (c *Collection[T, F]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	var zero F
	c.items = nil
	c.filter = zero
	c.page, c.pages, c.total, c.limit = 0, 0, 0, 0
	c.loaded = false
	c.err = nil
	for k := range c.entitySeq {
		c.entitySeq[k]++
	}
	clear(c.pending)
}

// Snapshot returns a copy of the current state.
func (c *Collection[T, F]) Snapshot() Snapshot[T, F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Err returns the last store failure, nil after a successful operation.
func (c *Collection[T, F]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Collection[T, F]) snapshotLocked() Snapshot[T, F] {
	return Snapshot[T, F]{
		Items:       slices.Clone(c.items),
		Filter:      c.filter,
		CurrentPage: c.page,
		TotalPages:  c.pages,
		Total:       c.total,
		Limit:       c.limit,
		Loaded:      c.loaded,
		IsLoading:   c.inflight > 0,
		Err:         c.err,
	}
}

func (c *Collection[T, F]) indexLocked(key string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return c.key(item) == key })
}
