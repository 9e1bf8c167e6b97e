// Package ride persists per-request assignment state. Every mutation is a
// compare-and-swap on the assigned driver so concurrent forwards and accepts
// cannot silently overwrite each other.
package ride

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medride/dispatch/core/model"
)

var (
	// ErrNotFound is returned when no ride state exists for a request uid.
	ErrNotFound = errors.New("ride: not found")
	// ErrConcurrentModification is returned when a conditional update lost
	// its race. The caller may retry or abort.
	ErrConcurrentModification = errors.New("ride: concurrent modification")
	// ErrExpired is returned when an operation references a ride past its
	// deadline.
	ErrExpired = errors.New("ride: request expired")
)

// Store persists RideState keyed by request uid.
type Store interface {
	// Create persists the state, overwriting any record at the same key.
	// Duplicate request uids silently clobber prior state; the engine
	// treats the client-supplied uid as authoritative.
	Create(ctx context.Context, st model.RideState) error

	Get(ctx context.Context, requestUID string) (model.RideState, error)

	// CompareAndSwap applies update to the stored state only if the
	// assigned driver still equals expect (nil meaning unassigned). It
	// returns the updated state, or ErrConcurrentModification when the
	// guard failed, or ErrNotFound.
	CompareAndSwap(ctx context.Context, requestUID string, expect *string, update func(*model.RideState)) (model.RideState, error)

	// Expired returns the request uids whose deadline lies before now and
	// that have no assigned driver.
	Expired(ctx context.Context, now time.Time) ([]string, error)

	Delete(ctx context.Context, requestUID string) error
}

// Assign transitions a ride from unassigned to the given driver using the
// store's conditional update. Exactly one of two racing writers wins.
func Assign(ctx context.Context, s Store, requestUID, driverUID string) (model.RideState, error) {
	return s.CompareAndSwap(ctx, requestUID, nil, func(st *model.RideState) {
		uid := driverUID
		st.AssignedDriver = &uid
	})
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]model.RideState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]model.RideState)}
}

func (s *MemoryStore) Create(_ context.Context, st model.RideState) error {
	s.mu.Lock()
	s.data[st.RequestUID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requestUID string) (model.RideState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[requestUID]
	if !ok {
		return model.RideState{}, ErrNotFound
	}
	return st, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, requestUID string, expect *string, update func(*model.RideState)) (model.RideState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[requestUID]
	if !ok {
		return model.RideState{}, ErrNotFound
	}
	if !sameDriver(st.AssignedDriver, expect) {
		return model.RideState{}, ErrConcurrentModification
	}
	update(&st)
	s.data[requestUID] = st
	return st, nil
}

func (s *MemoryStore) Expired(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for uid, st := range s.data {
		if st.AssignedDriver == nil && st.Expired(now) {
			out = append(out, uid)
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, requestUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[requestUID]; !ok {
		return ErrNotFound
	}
	delete(s.data, requestUID)
	return nil
}

func sameDriver(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
