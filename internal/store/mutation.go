package store

import (
	"context"
	"slices"
)

// Op is the kind of a Mutation.
type Op int

// Mutation kinds. OpAdd upserts by key.
const (
	OpAdd Op = iota
	OpUpdate
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Mutation is a command against one entity of a collection.
//
// Send confirms the change with the backing service. It receives the
// collection as it would look after the change and returns the confirmed
// item, which replaces the tentative one (for OpRemove it is ignored).
type Mutation[T any] struct {
	Op         Op
	Item       T
	Optimistic bool
	Send       func(ctx context.Context, next []T) (T, error)
}

// Mutate applies m. Optimistic mutations are visible immediately and rolled
// back if Send fails; otherwise the collection changes only after Send
// succeeds. A failed mutation restores the last confirmed state of its key,
// not the tentative state of an earlier mutation still in flight. When a
// newer mutation for the same key was issued while Send was running, the
// result is left to that newer mutation and ErrSuperseded is returned.
func (c *Collection[T, F]) Mutate(ctx context.Context, m Mutation[T]) (Snapshot[T, F], error) {
	key := c.key(m.Item)

	c.mu.Lock()
	idx := c.indexLocked(key)
	if idx < 0 && (m.Op == OpUpdate || m.Op == OpRemove) {
		c.err = &Error{Store: c.name, Op: m.Op.String(), Err: ErrUnknownItem}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, c.err
	}
	had := idx >= 0
	if m.Send == nil {
		c.entitySeq[key]++
		c.items = apply(c.items, c.key, m.Op, key, m.Item)
		c.adjustTotalLocked(m.Op, had)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	if !had && !m.Optimistic && m.Op == OpAdd {
		c.mu.Unlock()
		return c.create(ctx, m)
	}
	p := c.pending[key]
	if p == nil {
		p = &pendingEntity[T]{had: had, idx: idx}
		if had {
			p.item = c.items[idx]
		}
		c.pending[key] = p
	}
	p.count++
	p.restored = false
	c.entitySeq[key]++
	seq := c.entitySeq[key]
	next := apply(slices.Clone(c.items), c.key, m.Op, key, m.Item)
	if m.Optimistic {
		c.items = slices.Clone(next)
		c.adjustTotalLocked(m.Op, had)
	}
	c.mu.Unlock()

	confirmed, err := m.Send(ctx, next)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] != p {
		// Reset ran while Send was in flight.
		return c.snapshotLocked(), ErrSuperseded
	}
	p.count--
	if p.count == 0 {
		delete(c.pending, key)
	}
	if err == nil {
		p.had = m.Op != OpRemove
		if p.had {
			p.item = confirmed
			p.idx = c.indexLocked(key)
		}
	}

	if c.entitySeq[key] != seq {
		if err == nil && p.restored && p.count == 0 {
			// Every newer mutation has failed and rolled back to a state this
			// one has since replaced.
			c.restoreLocked(key, p)
		}
		return c.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		c.restoreLocked(key, p)
		p.restored = true
		c.err = &Error{Store: c.name, Op: m.Op.String(), Err: err}
		return c.snapshotLocked(), c.err
	}
	if m.Op == OpRemove {
		c.items = apply(c.items, c.key, OpRemove, key, m.Item)
	} else {
		if confirmedKey := c.key(confirmed); confirmedKey != key {
			c.items = apply(c.items, c.key, OpRemove, key, m.Item)
			key = confirmedKey
		}
		c.items = apply(c.items, c.key, OpAdd, key, confirmed)
	}
	if !m.Optimistic {
		c.adjustTotalLocked(m.Op, had)
	}
	c.err = nil
	return c.snapshotLocked(), nil
}

// create confirms an item the collection does not hold yet, typically one
// whose key is assigned by the server. Creations are independent of each
// other and are not sequenced.
func (c *Collection[T, F]) create(ctx context.Context, m Mutation[T]) (Snapshot[T, F], error) {
	c.mu.Lock()
	next := apply(slices.Clone(c.items), c.key, OpAdd, c.key(m.Item), m.Item)
	c.mu.Unlock()

	confirmed, err := m.Send(ctx, next)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = &Error{Store: c.name, Op: m.Op.String(), Err: err}
		return c.snapshotLocked(), c.err
	}
	key := c.key(confirmed)
	c.adjustTotalLocked(OpAdd, c.indexLocked(key) >= 0)
	c.items = apply(c.items, c.key, OpAdd, key, confirmed)
	c.err = nil
	return c.snapshotLocked(), nil
}

func apply[T any](items []T, keyFn func(T) string, op Op, key string, item T) []T {
	idx := slices.IndexFunc(items, func(it T) bool { return keyFn(it) == key })
	switch op {
	case OpRemove:
		if idx >= 0 {
			items = slices.Delete(items, idx, idx+1)
		}
	default:
		if idx >= 0 {
			items[idx] = item
		} else {
			items = append(items, item)
		}
	}
	return items
}

// restoreLocked puts the confirmed state of key back in place and keeps
// Total in step.
func (c *Collection[T, F]) restoreLocked(key string, p *pendingEntity[T]) {
	cur := c.indexLocked(key)
	switch {
	case p.had && cur >= 0:
		c.items[cur] = p.item
	case p.had:
		idx := min(max(p.idx, 0), len(c.items))
		c.items = slices.Insert(c.items, idx, p.item)
		c.total++
	case cur >= 0:
		c.items = slices.Delete(c.items, cur, cur+1)
		c.total = max(c.total-1, 0)
	}
}

// adjustTotalLocked keeps Total in step with additions and removals made
// outside a fetch.
func (c *Collection[T, F]) adjustTotalLocked(op Op, existed bool) {
	switch {
	case op == OpAdd && !existed:
		c.total++
	case op == OpRemove && existed:
		c.total = max(c.total-1, 0)
	}
}
