// Package config loads the simulation, environment and observability
// settings of the gymacn tool.
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

	coreenv "github.com/caltech-netlab/gym-acnportal/core/env"
	"github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/sim"
	"github.com/caltech-netlab/gym-acnportal/infra/mqtt"
)

type Config struct {
	Simulation SimulationConfig    `json:"simulation"`
	Network    NetworkConfig       `json:"network"`
	Sessions   []SessionConfig     `json:"sessions"`
	Generator  sim.GeneratorConfig `json:"generator"`
	Env        coreenv.Config      `json:"env"`
	Metrics    metrics.Config      `json:"metrics"`
	StepLog    StepLogConfig       `json:"steplog"`
	MQTT       mqtt.Config         `json:"mqtt"`
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

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Network.SetDefaults()
	c.Generator.SetDefaults()
	c.StepLog.SetDefaults()
	if c.Simulation.ForceFeasibility {
		c.Env.ForceFeasibility = true
	}
	if c.Env.Action == "" {
		c.Env.Action = "single_charging_schedule"
	}
	c.fillMQTTSinks()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	for i, s := range c.Sessions {
		if err := s.Validate(c.Network); err != nil {
			return fmt.Errorf("sessions[%d]: %w", i, err)
		}
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if err := c.StepLog.Validate(); err != nil {
		return fmt.Errorf("steplog: %w", err)
	}
	return nil
}

// fillMQTTSinks lets an mqtt metrics sink without its own conf reuse the
// top-level mqtt section.
func (c *Config) fillMQTTSinks() {
	for i := range c.Metrics.Sinks {
		s := &c.Metrics.Sinks[i]
		if s.Type != "mqtt" || len(s.Conf) > 0 || c.MQTT.Broker == "" {
			continue
		}
		s.Conf = map[string]any{
			"broker":       c.MQTT.Broker,
			"client_id":    c.MQTT.ClientID,
			"username":     c.MQTT.Username,
			"password":     c.MQTT.Password,
			"topic_prefix": c.MQTT.TopicPrefix,
			"qos":          c.MQTT.QoS,
			"retain":       c.MQTT.Retain,
			"use_tls":      c.MQTT.UseTLS,
			"client_cert":  c.MQTT.ClientCert,
			"client_key":   c.MQTT.ClientKey,
			"ca_bundle":    c.MQTT.CABundle,
			"max_retries":  c.MQTT.MaxRetries,
			"backoff_ms":   c.MQTT.BackoffMS,
		}
	}
}
