package store

import (
	"context"
	"sync"
	"time"
)

// Registry owns one value per browser session, built lazily and evicted after
// it has been idle for the configured TTL.
type Registry[S any] struct {
	build func(ctx context.Context, key string) (S, error)
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry[S]
}

type registryEntry[S any] struct {
	value    S
	lastSeen time.Time
}

// NewRegistry constructs a Registry. A non-positive idle TTL disables eviction.
func NewRegistry[S any](idle time.Duration, build func(ctx context.Context, key string) (S, error)) *Registry[S] {
	return &Registry[S]{
		build:   build,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*registryEntry[S]),
	}
}

// Get returns the value for key, building it on first use. Build failures
// are not cached.
func (r *Registry[S]) Get(ctx context.Context, key string) (S, error) {
	r.mu.Lock()
	if entry, ok := r.entries[key]; ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.value, nil
	}
	r.mu.Unlock()

	value, err := r.build(ctx, key)
	if err != nil {
		var zero S
		return zero, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[key]; ok {
		entry.lastSeen = r.now()
		return entry.value, nil
	}
	r.entries[key] = &registryEntry[S]{value: value, lastSeen: r.now()}
	return value, nil
}

// Drop forgets the value for key, e.g. on logout.
func (r *Registry[S]) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len returns the number of live entries.
func (r *Registry[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts idle entries and returns how many were removed.
func (r *Registry[S]) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry[S]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
