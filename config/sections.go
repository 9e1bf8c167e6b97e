package config

import "fmt"

// HTTPConfig holds the listener settings for the public API.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// AuthConfig holds the bearer-token settings.
type AuthConfig struct {
	// Secret signs and verifies tokens. Mandatory.
	Secret string `json:"secret"`
	// TokenTTLMinutes bounds tokens issued by the token subcommand.
	TokenTTLMinutes int `json:"token_ttl_minutes"`
}

// Validate checks mandatory fields.
func (c AuthConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	return nil
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	// Rides selects where ride state, drivers, users and history live:
	// "memory" or "postgres".
	Rides string `json:"rides"`
	// Locations selects the location index: "memory" or "redis".
	Locations string `json:"locations"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Rides == "" {
		c.Rides = "memory"
	}
	if c.Locations == "" {
		c.Locations = "memory"
	}
}

// Validate checks the backend selectors.
func (c StorageConfig) Validate() error {
	switch c.Rides {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage.rides backend %s", c.Rides)
	}
	switch c.Locations {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage.locations backend %s", c.Locations)
	}
	return nil
}

// NotifyConfig selects the notification transport.
type NotifyConfig struct {
	// Mode is "mqtt", "ws" or "mock".
	Mode string `json:"mode"`
}

// SetDefaults applies sane defaults.
func (c *NotifyConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "mqtt"
	}
}

// Validate checks the transport selector.
func (c NotifyConfig) Validate() error {
	switch c.Mode {
	case "mqtt", "ws", "mock":
		return nil
	default:
		return fmt.Errorf("unknown notify.mode %s", c.Mode)
	}
}

// MetricsConfig wires the optional observability sinks.
type MetricsConfig struct {
	// PromAddr exposes /metrics when non-empty, e.g. ":9091".
	PromAddr string       `json:"prom_addr"`
	Influx   InfluxConfig `json:"influx"`
}

// InfluxConfig holds the InfluxDB sink settings. The sink is enabled when
// URL is non-empty.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}
