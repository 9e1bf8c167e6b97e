// Package config loads the service configuration from a yaml or json file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/medride/dispatch/core/dispatch"
	"github.com/medride/dispatch/infra/location"
	"github.com/medride/dispatch/infra/notify"
	"github.com/medride/dispatch/infra/store"
)

type Config struct {
	HTTP     HTTPConfig           `json:"http"`
	Auth     AuthConfig           `json:"auth"`
	Dispatch dispatch.Config      `json:"dispatch"`
	Storage  StorageConfig        `json:"storage"`
	Postgres store.PostgresConfig `json:"postgres"`
	Redis    location.RedisConfig `json:"redis"`
	Notify   NotifyConfig         `json:"notify"`
	MQTT     notify.MQTTConfig    `json:"mqtt"`
	Metrics  MetricsConfig        `json:"metrics"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. MD_POSTGRES__PASSWORD.
	if err := k.Load(env.Provider("MD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "md_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Storage.SetDefaults()
	cfg.Notify.SetDefaults()
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notify.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
