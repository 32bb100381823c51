// Package config loads the engine configuration from a YAML or JSON file
// with optional environment overrides (prefix K_, nested keys joined with
// a double underscore, e.g. K_REDIS__ADDR).
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

	"github.com/evzone/chargeml/core/cache"
	"github.com/evzone/chargeml/core/metrics"
	"github.com/evzone/chargeml/core/predictor"
	"github.com/evzone/chargeml/core/service"
	"github.com/evzone/chargeml/infra/kafka"
	"github.com/evzone/chargeml/infra/mqtt"
	"github.com/evzone/chargeml/infra/redis"
)

// Config is the root configuration of the decision engine.
type Config struct {
	Logging LoggingConfig    `json:"logging"`
	Models  predictor.Config `json:"models"`
	Cache   cache.Config     `json:"cache"`
	Alerts  service.Config   `json:"alerts"`
	Redis   redis.Config     `json:"redis"`
	Kafka   kafka.Config     `json:"kafka"`
	MQTT    mqtt.Config      `json:"mqtt"`
	Metrics metrics.Config   `json:"metrics"`
	// PrometheusAddr is the scrape endpoint address; empty disables it.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Load reads the file at path, applies environment overrides and defaults,
// and validates the result.
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's defaults.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Models.SetDefaults()
	c.Cache.SetDefaults()
	c.Alerts.SetDefaults()
	c.Redis.SetDefaults()
	c.Kafka.SetDefaults()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Alerts.PublishThreshold < 0 || c.Alerts.PublishThreshold > 1 {
		return fmt.Errorf("alerts.publish_threshold must be in [0,1], got %v", c.Alerts.PublishThreshold)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when the MQTT bridge is enabled")
	}
	return nil
}
