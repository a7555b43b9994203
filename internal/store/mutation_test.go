package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(items ...item) *Collection[item, filter] {
	c := New(Options[item, filter]{Name: "cart", Key: itemKey, Fetch: func(context.Context, Query[filter]) (Page[item], error) {
		return Page[item]{}, nil
	}})
	c.Seed(filter{}, Page[item]{Items: items, Page: 1, TotalPages: 1, Total: len(items)})
	return c
}

func TestMutateOptimisticUpdateRollsBack(t *testing.T) {
	c := seeded(item{ID: "a", Name: "one"}, item{ID: "b", Name: "two"})
	boom := errors.New("rejected")

	var duringSend Snapshot[item, filter]
	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpUpdate,
		Item:       item{ID: "a", Name: "uno"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			duringSend = c.Snapshot()
			return item{}, boom
		},
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "uno", duringSend.Items[0].Name, "tentative state visible while confirming")
	assert.Equal(t, []item{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}, snap.Items)
	assert.Equal(t, err, c.Err())
}

func TestMutateOptimisticRemoveRollsBackInPlace(t *testing.T) {
	c := seeded(item{ID: "a"}, item{ID: "b"}, item{ID: "c"})

	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpRemove,
		Item:       item{ID: "b"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			assert.Equal(t, []item{{ID: "a"}, {ID: "c"}}, next)
			return item{}, errors.New("nope")
		},
	})

	require.Error(t, err)
	assert.Equal(t, []item{{ID: "a"}, {ID: "b"}, {ID: "c"}}, snap.Items)
	assert.Equal(t, 3, snap.Total)
}

func TestMutateOptimisticAddRollsBack(t *testing.T) {
	c := seeded(item{ID: "a"})

	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpAdd,
		Item:       item{ID: "z"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{}, errors.New("nope")
		},
	})

	require.Error(t, err)
	assert.Equal(t, []item{{ID: "a"}}, snap.Items)
	assert.Equal(t, 1, snap.Total)
}

func TestMutatePostConfirmationUsesServerItem(t *testing.T) {
	c := seeded(item{ID: "a"})

	var duringSend Snapshot[item, filter]
	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:   OpAdd,
		Item: item{Name: "new venue"},
		Send: func(ctx context.Context, next []item) (item, error) {
			duringSend = c.Snapshot()
			return item{ID: "server-1", Name: "new venue"}, nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "a"}}, duringSend.Items, "non-optimistic mutation waits for confirmation")
	assert.Equal(t, []item{{ID: "a"}, {ID: "server-1", Name: "new venue"}}, snap.Items)
	assert.Equal(t, 2, snap.Total)
	assert.NoError(t, c.Err())
}

func TestMutateFailedPostConfirmationLeavesCollection(t *testing.T) {
	c := seeded(item{ID: "a"})
	_, err := c.Mutate(context.Background(), Mutation[item]{
		Op:   OpAdd,
		Item: item{Name: "x"},
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{}, errors.New("422")
		},
	})
	require.Error(t, err)
	assert.Equal(t, []item{{ID: "a"}}, c.Snapshot().Items)
}

func TestMutateUnknownItem(t *testing.T) {
	c := seeded(item{ID: "a"})
	_, err := c.Mutate(context.Background(), Mutation[item]{Op: OpRemove, Item: item{ID: "missing"}})
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestMutateOlderReconciliationIsDiscarded(t *testing.T) {
	c := seeded(item{ID: "a", Name: "v0"})
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Mutate(context.Background(), Mutation[item]{
			Op:         OpUpdate,
			Item:       item{ID: "a", Name: "v1"},
			Optimistic: true,
			Send: func(ctx context.Context, next []item) (item, error) {
				close(firstStarted)
				<-releaseFirst
				return item{}, errors.New("late failure")
			},
		})
		firstErr <- err
	}()
	<-firstStarted

	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpUpdate,
		Item:       item{ID: "a", Name: "v2"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{ID: "a", Name: "v2"}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", snap.Items[0].Name)

	close(releaseFirst)
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Equal(t, "v2", c.Snapshot().Items[0].Name, "late rollback must not undo the newer change")
}

// holdUpdate starts an optimistic update of a whose Send blocks until the
// returned release function is called with the outcome.
func holdUpdate(t *testing.T, c *Collection[item, filter], name string) (release func(error), done <-chan error) {
	t.Helper()
	started := make(chan struct{})
	outcome := make(chan error)
	result := make(chan error, 1)
	go func() {
		_, err := c.Mutate(context.Background(), Mutation[item]{
			Op:         OpUpdate,
			Item:       item{ID: "a", Name: name},
			Optimistic: true,
			Send: func(ctx context.Context, next []item) (item, error) {
				close(started)
				if err := <-outcome; err != nil {
					return item{}, err
				}
				return item{ID: "a", Name: name}, nil
			},
		})
		result <- err
	}()
	<-started
	return func(err error) { outcome <- err }, result
}

func TestMutateBothOverlappingFailuresRestoreKnownGood(t *testing.T) {
	c := seeded(item{ID: "a", Name: "v0"})
	release, firstDone := holdUpdate(t, c, "v1")

	_, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpUpdate,
		Item:       item{ID: "a", Name: "v2"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{}, errors.New("rejected")
		},
	})
	require.Error(t, err)
	assert.Equal(t, []item{{ID: "a", Name: "v0"}}, c.Snapshot().Items)

	release(errors.New("also rejected"))
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)
	assert.Equal(t, []item{{ID: "a", Name: "v0"}}, c.Snapshot().Items)
}

func TestMutateOlderSuccessSurvivesNewerFailure(t *testing.T) {
	c := seeded(item{ID: "a", Name: "v0"})
	release, firstDone := holdUpdate(t, c, "v1")

	_, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpUpdate,
		Item:       item{ID: "a", Name: "v2"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{}, errors.New("rejected")
		},
	})
	require.Error(t, err)

	release(nil)
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)
	assert.Equal(t, []item{{ID: "a", Name: "v1"}}, c.Snapshot().Items, "confirmed older change is what the server holds")
}

func TestMutateFailureAfterOverlappingRemoveRestoresItem(t *testing.T) {
	c := seeded(item{ID: "a", Name: "v0"}, item{ID: "b"})
	release, firstDone := holdUpdate(t, c, "v1")

	snap, err := c.Mutate(context.Background(), Mutation[item]{
		Op:         OpRemove,
		Item:       item{ID: "a"},
		Optimistic: true,
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{}, errors.New("rejected")
		},
	})
	require.Error(t, err)
	assert.Equal(t, []item{{ID: "a", Name: "v0"}, {ID: "b"}}, snap.Items)
	assert.Equal(t, 2, snap.Total)

	release(errors.New("rejected"))
	<-firstDone
	assert.Equal(t, 2, c.Snapshot().Total)
}

func TestMutateConcurrentCreationsBothLand(t *testing.T) {
	c := seeded(item{ID: "a"})
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Mutate(context.Background(), Mutation[item]{
			Op:   OpAdd,
			Item: item{Name: "first"},
			Send: func(ctx context.Context, next []item) (item, error) {
				close(started)
				<-release
				return item{ID: "srv-1", Name: "first"}, nil
			},
		})
		done <- err
	}()
	<-started

	_, err := c.Mutate(context.Background(), Mutation[item]{
		Op:   OpAdd,
		Item: item{Name: "second"},
		Send: func(ctx context.Context, next []item) (item, error) {
			return item{ID: "srv-2", Name: "second"}, nil
		},
	})
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.ElementsMatch(t, []item{{ID: "a"}, {ID: "srv-1", Name: "first"}, {ID: "srv-2", Name: "second"}}, snap.Items)
	assert.Equal(t, 3, snap.Total)
}

func TestRegistryBuildsOncePerKeyAndSweeps(t *testing.T) {
	builds := 0
	reg := NewRegistry(time.Minute, func(ctx context.Context, key string) (*Collection[item, filter], error) {
		builds++
		return seeded(item{ID: key}), nil
	})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	a1, err := reg.Get(context.Background(), "sess-a")
	require.NoError(t, err)
	a2, err := reg.Get(context.Background(), "sess-a")
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	_, err = reg.Get(context.Background(), "sess-b")
	require.NoError(t, err)
	assert.Equal(t, 2, builds)

	now = now.Add(30 * time.Second)
	_, _ = reg.Get(context.Background(), "sess-a")
	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	reg.Drop("sess-a")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryDoesNotCacheBuildFailure(t *testing.T) {
	fail := true
	reg := NewRegistry(0, func(ctx context.Context, key string) (int, error) {
		if fail {
			return 0, errors.New("redis down")
		}
		return 7, nil
	})
	_, err := reg.Get(context.Background(), "k")
	require.Error(t, err)
	fail = false
	v, err := reg.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, reg.Sweep())
}
