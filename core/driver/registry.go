// Package driver holds the registry of driver profiles consumed by the
// dispatch engine and managed by the admin API.
package driver

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/medride/dispatch/core/model"
)

// ErrNotFound is returned when a driver uid is unknown to the registry.
var ErrNotFound = errors.New("driver: not found")

// Registry provides access to driver eligibility attributes. The dispatch
// engine only reads; Put and Delete serve the account-management surface.
type Registry interface {
	// ListAll returns every known driver profile. No filtering happens
	// here; eligibility is the engine's responsibility.
	ListAll(ctx context.Context) ([]model.DriverProfile, error)
	Get(ctx context.Context, uid string) (model.DriverProfile, error)
	Put(ctx context.Context, p model.DriverProfile) error
	Delete(ctx context.Context, uid string) error
}

// MemoryRegistry is a mutex-guarded in-memory Registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	data map[string]model.DriverProfile
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{data: make(map[string]model.DriverProfile)}
}

func (r *MemoryRegistry) ListAll(context.Context) ([]model.DriverProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.DriverProfile, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *MemoryRegistry) Get(_ context.Context, uid string) (model.DriverProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[uid]
	if !ok {
		return model.DriverProfile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRegistry) Put(_ context.Context, p model.DriverProfile) error {
	r.mu.Lock()
	r.data[p.UID] = p
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[uid]; !ok {
		return ErrNotFound
	}
	delete(r.data, uid)
	return nil
}
