// Package policy holds baseline agents producing one pilot per station, in
// the order of the network's station ids.
package policy

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
)

// Policy chooses the next action from the current simulation state.
type Policy interface {
	Name() string
	Act(t gym.Trained) ([]float64, error)
}

// New returns the baseline policy called name. rng is used by the random
// policy only.
func New(name string, rng *rand.Rand) (Policy, error) {
	switch name {
	case "zero", "":
		return Zero{}, nil
	case "max":
		return MaxRate{}, nil
	case "random":
		return NewRandom(rng), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// Zero never charges.
type Zero struct{}

func (Zero) Name() string { return "zero" }

func (Zero) Act(t gym.Trained) ([]float64, error) {
	return make([]float64, len(t.StationIDs())), nil
}

// MaxRate sends each active station its maximum pilot.
type MaxRate struct{}

func (MaxRate) Name() string { return "max" }

func (MaxRate) Act(t gym.Trained) ([]float64, error) {
	ids := t.StationIDs()
	active := activeSet(t)
	out := make([]float64, len(ids))
	for i, id := range ids {
		if _, ok := active[id]; !ok {
			continue
		}
		p, err := t.MaxPilotSignal(id)
		if err != nil {
			return nil, err
		}
		if math.IsInf(p, 1) {
			continue
		}
		out[i] = p
	}
	return out, nil
}

// Random draws, for each active station, a pilot the station accepts.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a random policy using rng, or a fixed-seed source when
// rng is nil.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Random{rng: rng}
}

func (*Random) Name() string { return "random" }

func (r *Random) Act(t gym.Trained) ([]float64, error) {
	ids := t.StationIDs()
	active := activeSet(t)
	out := make([]float64, len(ids))
	for i, id := range ids {
		if _, ok := active[id]; !ok {
			continue
		}
		p, err := t.AllowablePilotSignals(id)
		if err != nil {
			return nil, err
		}
		if !p.Continuous {
			if len(p.Rates) > 0 {
				out[i] = p.Rates[r.rng.Intn(len(p.Rates))]
			}
			continue
		}
		hi := p.Max
		if math.IsInf(hi, 1) {
			hi = p.Min
		}
		out[i] = p.Min + r.rng.Float64()*(hi-p.Min)
	}
	return out, nil
}

func activeSet(t gym.Trained) map[string]struct{} {
	active := make(map[string]struct{})
	for _, id := range t.ActiveStationIDs() {
		active[id] = struct{}{}
	}
	return active
}
