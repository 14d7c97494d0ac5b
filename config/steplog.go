package config

import "fmt"

// StepLogConfig defines where step records are persisted.
type StepLogConfig struct {
	// Backend selects the store type. Only "jsonl" is supported.
	Backend string `json:"backend"`
	// Path is the file location of the store, empty disables it.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StepLogConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
}

// Validate checks mandatory fields.
func (c StepLogConfig) Validate() error {
	if c.Backend != "jsonl" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	return nil
}

// Enabled reports whether steps should be persisted.
func (c StepLogConfig) Enabled() bool { return c.Path != "" }
