package sim

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// GeneratorConfig holds parameters for random session generation.
type GeneratorConfig struct {
	// Sessions is the number of sessions per station.
	Sessions int `json:"sessions"`
	// Horizon is the last iteration at which a session may arrive.
	Horizon int `json:"horizon"`
	// MinDuration and MaxDuration bound the session length in iterations.
	MinDuration int `json:"min_duration"`
	MaxDuration int `json:"max_duration"`
	// MinEnergy and MaxEnergy bound the requested energy in kWh.
	MinEnergy float64 `json:"min_energy"`
	MaxEnergy float64 `json:"max_energy"`
	// MaxRate is the EV battery limit in amps, 0 for unlimited.
	MaxRate float64 `json:"max_rate"`
}

// SetDefaults fills unset fields.
func (c *GeneratorConfig) SetDefaults() {
	if c.Sessions == 0 {
		c.Sessions = 1
	}
	if c.Horizon == 0 {
		c.Horizon = 12
	}
	if c.MinDuration == 0 {
		c.MinDuration = 6
	}
	if c.MaxDuration < c.MinDuration {
		c.MaxDuration = c.MinDuration * 2
	}
	if c.MinEnergy == 0 {
		c.MinEnergy = 2
	}
	if c.MaxEnergy < c.MinEnergy {
		c.MaxEnergy = c.MinEnergy * 5
	}
}

// Validate checks the ranges SetDefaults leaves in place.
func (c GeneratorConfig) Validate() error {
	if c.Sessions < 0 || c.Horizon < 0 {
		return fmt.Errorf("sessions and horizon must not be negative")
	}
	if c.MinDuration < 1 {
		return fmt.Errorf("min_duration must be at least 1, got %d", c.MinDuration)
	}
	if c.MaxDuration < c.MinDuration {
		return fmt.Errorf("max_duration %d below min_duration %d", c.MaxDuration, c.MinDuration)
	}
	if c.MinEnergy < 0 || c.MaxEnergy < c.MinEnergy {
		return fmt.Errorf("energy range [%g, %g] invalid", c.MinEnergy, c.MaxEnergy)
	}
	if c.MaxRate < 0 {
		return fmt.Errorf("max_rate must not be negative")
	}
	return nil
}

// GenerateSessions draws up to cfg.Sessions non-overlapping sessions per
// station. Stations are visited in the given order so a fixed rng seed gives
// a reproducible set. An invalid cfg yields no sessions.
func GenerateSessions(cfg GeneratorConfig, stations []string, rng *rand.Rand) []model.EV {
	cfg.SetDefaults()
	if cfg.Validate() != nil || rng == nil || len(stations) == 0 || cfg.Sessions <= 0 {
		return nil
	}
	var evs []model.EV
	for _, id := range stations {
		free := 0
		for i := 0; i < cfg.Sessions; i++ {
			if free > cfg.Horizon {
				break
			}
			arrival := free + rng.Intn(cfg.Horizon-free+1)
			duration := cfg.MinDuration + rng.Intn(cfg.MaxDuration-cfg.MinDuration+1)
			if duration < 1 {
				duration = 1
			}
			energy := cfg.MinEnergy + rng.Float64()*(cfg.MaxEnergy-cfg.MinEnergy)
			evs = append(evs, model.EV{
				SessionID:       uuid.NewString(),
				StationID:       id,
				Arrival:         arrival,
				Departure:       arrival + duration,
				RequestedEnergy: energy,
				MaxRate:         cfg.MaxRate,
			})
			free = arrival + duration
		}
	}
	return evs
}

// SessionEvents converts sessions into plugin events.
func SessionEvents(evs []model.EV) []Event {
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, PluginEvent(ev))
	}
	return out
}
