// Package location tracks the last reported position of each driver and
// answers radius queries for the dispatch engine.
package location

import (
	"context"
	"sync"

	"github.com/mmcloughlin/geohash"

	"github.com/medride/dispatch/core/geo"
	"github.com/medride/dispatch/core/model"
)

// indexPrecision is the geohash length used for bucketing. Precision 4 cells
// are roughly 39x20 km, so a cell plus its neighbors always covers the
// dispatch radius with a wide margin.
const indexPrecision = 4

// Store provides snapshot access to driver positions. A driver missing from
// the store simply has an unknown location; that is not an error.
type Store interface {
	// Update records the latest position for a driver, replacing any
	// previous report.
	Update(ctx context.Context, uid string, rec model.LocationRecord) error

	// Snapshot returns the latest reported coordinate per driver. No
	// cross-record consistency is guaranteed beyond "most recent write
	// observed".
	Snapshot(ctx context.Context) (map[string]model.LocationRecord, error)

	// Near returns the drivers whose last known position lies within
	// radiusKm of origin.
	Near(ctx context.Context, origin model.Coord, radiusKm float64) (map[string]model.LocationRecord, error)
}

// MemoryStore is an in-memory Store with a geohash bucket index so radius
// queries avoid scanning the whole driver population.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.LocationRecord
	cells   map[string]map[string]struct{}
	cellOf  map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.LocationRecord),
		cells:   make(map[string]map[string]struct{}),
		cellOf:  make(map[string]string),
	}
}

// Update records the driver's position and moves it between index buckets
// when the cell changed.
func (s *MemoryStore) Update(_ context.Context, uid string, rec model.LocationRecord) error {
	cell := geohash.EncodeWithPrecision(rec.Latitude, rec.Longitude, indexPrecision)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.cellOf[uid]; ok && prev != cell {
		delete(s.cells[prev], uid)
		if len(s.cells[prev]) == 0 {
			delete(s.cells, prev)
		}
	}
	if s.cells[cell] == nil {
		s.cells[cell] = make(map[string]struct{})
	}
	s.cells[cell][uid] = struct{}{}
	s.cellOf[uid] = cell
	s.records[uid] = rec
	return nil
}

// Snapshot copies out every record under the read lock.
func (s *MemoryStore) Snapshot(_ context.Context) (map[string]model.LocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.LocationRecord, len(s.records))
	for uid, rec := range s.records {
		out[uid] = rec
	}
	return out, nil
}

// Near looks up the origin cell and its neighbors, then applies the exact
// haversine filter to the candidates.
func (s *MemoryStore) Near(_ context.Context, origin model.Coord, radiusKm float64) (map[string]model.LocationRecord, error) {
	center := geohash.EncodeWithPrecision(origin.Lat, origin.Lng, indexPrecision)
	cells := append(geohash.Neighbors(center), center)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.LocationRecord)
	for _, cell := range cells {
		for uid := range s.cells[cell] {
			rec := s.records[uid]
			if geo.DistanceKm(rec.Latitude, rec.Longitude, origin.Lat, origin.Lng) <= radiusKm {
				out[uid] = rec
			}
		}
	}
	return out, nil
}
