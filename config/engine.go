package config

import (
	"math/rand"

	"github.com/caltech-netlab/gym-acnportal/core/env"
	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/logger"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/sim"
)

// EngineFactory returns a factory building a new simulator per episode.
// Explicit sessions are replayed when configured, otherwise sessions are
// drawn from the generator with a random source seeded once from
// simulation.seed, so successive episodes differ but a run is reproducible.
func (c *Config) EngineFactory(log logger.Logger) env.EngineFactory {
	rng := rand.New(rand.NewSource(c.Simulation.Seed))
	return func() (gym.Engine, error) {
		net, err := c.Network.Build()
		if err != nil {
			return nil, err
		}
		var evs []model.EV
		if len(c.Sessions) > 0 {
			evs = make([]model.EV, len(c.Sessions))
			for i, s := range c.Sessions {
				evs[i] = s.EV()
			}
		} else {
			evs = sim.GenerateSessions(c.Generator, c.Network.StationIDs(), rng)
		}
		return sim.New(net, sim.SessionEvents(evs), c.Simulation.SimConfig(), log), nil
	}
}
