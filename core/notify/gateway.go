// Package notify defines the contract between the dispatch engine and the
// push-delivery infrastructure.
package notify

import (
	"context"
	"strconv"

	"github.com/medride/dispatch/core/model"
)

// Payload carries the ride metadata delivered to a driver's device. All
// values are string-encoded so any transport can forward them untouched.
type Payload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	RequestUID string `json:"requestUid"`
	StartLat   string `json:"startLat"`
	StartLng   string `json:"startLng"`
	DestLat    string `json:"destLat"`
	DestLng    string `json:"destLng"`
}

// NewRidePayload builds the payload announcing a ride request.
func NewRidePayload(requestUID string, start, dest model.Coord) Payload {
	lat := strconv.FormatFloat(start.Lat, 'f', -1, 64)
	lng := strconv.FormatFloat(start.Lng, 'f', -1, 64)
	return Payload{
		Title:      "Emergency Ride Request",
		Body:       "lat: " + lat + " lng: " + lng,
		RequestUID: requestUID,
		StartLat:   lat,
		StartLng:   lng,
		DestLat:    strconv.FormatFloat(dest.Lat, 'f', -1, 64),
		DestLng:    strconv.FormatFloat(dest.Lng, 'f', -1, 64),
	}
}

// Gateway delivers a payload to a single device address. Delivery is
// best-effort; an error for one address must never prevent delivery to the
// others, which is why the engine fans out one Send per address.
type Gateway interface {
	Send(ctx context.Context, address string, payload Payload) error
}
