// Package user holds rider account profiles. The dispatch core never reads
// these; they exist for the account-management and history surfaces.
package user

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a user uid is unknown.
var ErrNotFound = errors.New("user: not found")

// Profile is a rider account.
type Profile struct {
	UID         string `json:"uid"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Store persists user profiles.
type Store interface {
	Get(ctx context.Context, uid string) (Profile, error)
	Put(ctx context.Context, p Profile) error
	Delete(ctx context.Context, uid string) error
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Profile)}
}

func (s *MemoryStore) Get(_ context.Context, uid string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Put(_ context.Context, p Profile) error {
	s.mu.Lock()
	s.data[p.UID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[uid]; !ok {
		return ErrNotFound
	}
	delete(s.data, uid)
	return nil
}
