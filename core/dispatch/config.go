package dispatch

import "time"

// DefaultRadiusKm is the dispatch radius applied when none is configured.
// The boundary is inclusive: a driver at exactly this distance is eligible.
const DefaultRadiusKm = 5.0

// Config holds the tunables of the dispatch engine.
type Config struct {
	// RadiusKm is the eligibility radius around the pickup point.
	RadiusKm float64 `json:"radius_km"`
	// SendTimeoutSeconds bounds each notification submission. The caller
	// is only ever blocked on submission, never on delivery confirmation.
	SendTimeoutSeconds int `json:"send_timeout_seconds"`
	// RideTTLSeconds is how long a request accepts forwards and
	// assignments before it expires.
	RideTTLSeconds int `json:"ride_ttl_seconds"`
	// SweepIntervalSeconds is the cadence of the expiry sweeper.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.RadiusKm <= 0 {
		c.RadiusKm = DefaultRadiusKm
	}
	if c.SendTimeoutSeconds <= 0 {
		c.SendTimeoutSeconds = 5
	}
	if c.RideTTLSeconds <= 0 {
		c.RideTTLSeconds = 300
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = 60
	}
}

// SendTimeout returns the per-notification submission timeout.
func (c Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// RideTTL returns the request lifetime.
func (c Config) RideTTL() time.Duration {
	return time.Duration(c.RideTTLSeconds) * time.Second
}

// SweepInterval returns the expiry sweep cadence.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
