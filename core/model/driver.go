package model

import (
	"fmt"
	"math"
	"time"
)

// Coord is a latitude/longitude pair in degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate is a real point on the globe.
func (c Coord) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("coordinate must be numeric")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range", c.Lng)
	}
	return nil
}

// DriverProfile describes a driver as seen by the dispatch engine. The
// profile is owned by the driver-account subsystem; the engine only reads it.
type DriverProfile struct {
	UID             string `json:"uid"`
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	AmbulanceNumber string `json:"ambulance_number,omitempty"`

	// Active reports whether the driver is currently on shift.
	Active bool `json:"active"`
	// Enabled reports whether the driver is administratively permitted to
	// receive ride requests.
	Enabled bool `json:"enabled"`
	// NotifyAddress is the opaque push-delivery address for the driver's
	// device. Its interpretation belongs to the notification gateway.
	NotifyAddress string `json:"notify_address"`
}

// Dispatchable reports whether the driver may be considered for a request at
// all. Location and radius checks are the engine's concern.
func (d DriverProfile) Dispatchable() bool {
	return d.Active && d.Enabled && d.NotifyAddress != ""
}

// LocationRecord is the most recently reported position of a driver. No
// freshness guarantee is attached to ReportedAt; a driver that stopped
// reporting keeps its last coordinate.
type LocationRecord struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ReportedAt time.Time `json:"reported_at"`
}

// Coord returns the record's position as a Coord.
func (l LocationRecord) Coord() Coord {
	return Coord{Lat: l.Latitude, Lng: l.Longitude}
}
