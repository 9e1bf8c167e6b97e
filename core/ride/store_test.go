package ride

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medride/dispatch/core/model"
)

func newState(uid string) model.RideState {
	return model.RideState{
		RequestUID: uid,
		Start:      model.Coord{Lat: 6.9, Lng: 79.9},
		Dest:       model.Coord{Lat: 6.95, Lng: 79.95},
		CreatedAt:  time.Now(),
	}
}

func TestMemoryStoreCreateClobbers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newState("r1")))

	d := "d1"
	_, err := s.CompareAndSwap(ctx, "r1", nil, func(st *model.RideState) { st.AssignedDriver = &d })
	require.NoError(t, err)

	// Re-creating the same key silently resets assignment.
	require.NoError(t, s.Create(ctx, newState("r1")))
	st, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareAndSwapGuard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newState("r1")))

	st, err := Assign(ctx, s, "r1", "d2")
	require.NoError(t, err)
	require.NotNil(t, st.AssignedDriver)
	assert.Equal(t, "d2", *st.AssignedDriver)

	// A reset expecting "unassigned" must now lose.
	_, err = s.CompareAndSwap(ctx, "r1", nil, func(st *model.RideState) { st.AssignedDriver = nil })
	assert.ErrorIs(t, err, ErrConcurrentModification)

	// Expecting the current driver succeeds.
	d2 := "d2"
	st, err = s.CompareAndSwap(ctx, "r1", &d2, func(st *model.RideState) { st.AssignedDriver = nil })
	require.NoError(t, err)
	assert.Nil(t, st.AssignedDriver)
}

func TestConcurrentAssignSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, newState("r1")))

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Assign(ctx, s, "r1", "driver")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrConcurrentModification) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer must win the CAS")
}

func TestExpiredScan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	stale := newState("stale")
	stale.Deadline = now.Add(-time.Minute)
	require.NoError(t, s.Create(ctx, stale))

	fresh := newState("fresh")
	fresh.Deadline = now.Add(time.Minute)
	require.NoError(t, s.Create(ctx, fresh))

	assigned := newState("assigned")
	assigned.Deadline = now.Add(-time.Minute)
	require.NoError(t, s.Create(ctx, assigned))
	_, err := Assign(ctx, s, "assigned", "d1")
	require.NoError(t, err)

	uids, err := s.Expired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, uids)
}
