package model

import (
	"fmt"
	"time"
)

// RideState is the persisted per-request assignment record, keyed by
// RequestUID. It is the only mutable shared state in the dispatch core and
// every mutation of it goes through a compare-and-swap on AssignedDriver.
type RideState struct {
	RequestUID string `json:"request_uid"`
	Start      Coord  `json:"start"`
	Dest       Coord  `json:"dest"`

	// AssignedDriver is nil until a driver explicitly accepts the request.
	AssignedDriver *string `json:"assigned_driver"`

	// Excluded is the set of drivers removed from consideration by forwards.
	// It only ever grows for a given request; a driver excluded once is
	// never re-notified.
	Excluded map[string]struct{} `json:"excluded,omitempty"`

	// Deadline is the instant past which the request no longer accepts
	// forwards or assignments.
	Deadline time.Time `json:"deadline"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the identifying and coordinate fields.
func (r RideState) Validate() error {
	if r.RequestUID == "" {
		return fmt.Errorf("request uid is required")
	}
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := r.Dest.Validate(); err != nil {
		return fmt.Errorf("dest: %w", err)
	}
	return nil
}

// Expired reports whether the request deadline has passed at the given
// instant. A zero deadline never expires.
func (r RideState) Expired(now time.Time) bool {
	return !r.Deadline.IsZero() && now.After(r.Deadline)
}

// IsExcluded reports whether the driver has been excluded by a forward.
func (r RideState) IsExcluded(uid string) bool {
	_, ok := r.Excluded[uid]
	return ok
}

// Exclude returns a copy of the exclusion set with uid added. The receiver's
// map is not mutated so snapshots handed to callers stay stable.
func (r RideState) Exclude(uid string) map[string]struct{} {
	next := make(map[string]struct{}, len(r.Excluded)+1)
	for k := range r.Excluded {
		next[k] = struct{}{}
	}
	if uid != "" {
		next[uid] = struct{}{}
	}
	return next
}
