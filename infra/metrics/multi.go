package metrics

import coremetrics "github.com/medride/dispatch/core/metrics"

// MultiSink fans delivery records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDeliveries forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordDeliveries(recs []coremetrics.DeliveryRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDeliveries(recs); err != nil {
			return err
		}
	}
	return nil
}
