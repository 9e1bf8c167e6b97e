// Package metrics defines the sink contract for recording notification
// delivery outcomes.
package metrics

import "time"

// DeliveryRecord represents one attempted notification delivery.
type DeliveryRecord struct {
	RequestUID string
	DriverUID  string
	Address    string
	Forwarded  bool
	Delivered  bool
	Latency    time.Duration
	Time       time.Time
}

// Sink records delivery outcomes for observability purposes.
type Sink interface {
	RecordDeliveries(records []DeliveryRecord) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDeliveries([]DeliveryRecord) error { return nil }
