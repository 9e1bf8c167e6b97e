// Package history records completed rides and joins them with account
// profiles for the history endpoints.
package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Record is one completed ride.
type Record struct {
	Date      time.Time `json:"date"`
	UserUID   string    `json:"user_uid"`
	DriverUID string    `json:"driver_uid"`
}

// Store persists ride history records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// ByDriver returns the records for a driver, newest first.
	ByDriver(ctx context.Context, driverUID string) ([]Record, error)
	// ByUser returns the records for a user, newest first.
	ByUser(ctx context.Context, userUID string) ([]Record, error)
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ByDriver(_ context.Context, driverUID string) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.DriverUID == driverUID }), nil
}

func (s *MemoryStore) ByUser(_ context.Context, userUID string) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.UserUID == userUID }), nil
}

func (s *MemoryStore) filter(keep func(Record) bool) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
