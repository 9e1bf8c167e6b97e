// Package events defines the notifications published on the internal event
// bus while a ride request is dispatched.
package events

import (
	"time"

	"github.com/medride/dispatch/core/model"
)

// RideEvent is published when a ride request enters the engine. Forwarded is
// true on a re-broadcast.
type RideEvent struct {
	RequestUID string
	Start      model.Coord
	Dest       model.Coord
	Forwarded  bool
	Candidates int
}

// DeliveryEvent is published for each attempted notification delivery.
type DeliveryEvent struct {
	RequestUID string
	DriverUID  string
	Address    string
	Err        error
	Latency    time.Duration
}

// ExclusionEvent is published when a forward removes a driver from a
// request's candidate set.
type ExclusionEvent struct {
	RequestUID string
	DriverUID  string
}
