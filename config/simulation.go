package config

import (
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/core/sim"
)

// SimulationConfig controls the simulator and the episode driver.
type SimulationConfig struct {
	// PeriodMinutes is the length of one iteration.
	PeriodMinutes float64 `json:"period_minutes"`
	// MaxRecompute bounds the periods a schedule is applied. It defaults to
	// 1, a negative value re-plans on events only.
	MaxRecompute int `json:"max_recompute"`
	// ForceFeasibility rejects schedules failing the feasibility checks.
	ForceFeasibility bool `json:"force_feasibility"`
	// MaxSteps bounds an episode, 0 runs until the simulation ends.
	MaxSteps int `json:"max_steps"`
	// StallLimit ends an episode after that many consecutive rejected
	// schedules, 0 disables it.
	StallLimit int   `json:"stall_limit"`
	Episodes   int   `json:"episodes"`
	Seed       int64 `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.PeriodMinutes == 0 {
		c.PeriodMinutes = 5
	}
	if c.MaxRecompute == 0 {
		c.MaxRecompute = 1
	}
	if c.StallLimit == 0 {
		c.StallLimit = 10
	}
	if c.Episodes == 0 {
		c.Episodes = 1
	}
}

// Validate checks value ranges.
func (c SimulationConfig) Validate() error {
	if c.PeriodMinutes < 0 {
		return fmt.Errorf("period_minutes must be positive")
	}
	if c.MaxSteps < 0 || c.StallLimit < 0 || c.Episodes < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}

// SimConfig returns the simulator parameters.
func (c SimulationConfig) SimConfig() sim.Config {
	n := c.MaxRecompute
	if n < 0 {
		n = 0
	}
	return sim.Config{PeriodMinutes: c.PeriodMinutes, MaxRecompute: n}
}
