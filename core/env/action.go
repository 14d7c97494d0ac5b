package env

import (
	"errors"
	"fmt"
	"math"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// ErrActionShape is returned when an action does not have one entry per
// station.
var ErrActionShape = errors.New("action shape does not match station count")

// ActionSpace converts agent actions into charging schedules.
type ActionSpace interface {
	Name() string
	// Size is the expected action length.
	Size(t gym.Trained) int
	ToSchedule(t gym.Trained, action []float64) (model.Schedule, error)
}

// NewActionSpace returns the action space called name.
func NewActionSpace(name string) (ActionSpace, error) {
	switch name {
	case "", SingleChargingSchedule{}.Name():
		return SingleChargingSchedule{}, nil
	case ZeroCenteredSingleChargingSchedule{}.Name():
		return ZeroCenteredSingleChargingSchedule{}, nil
	default:
		return nil, fmt.Errorf("unknown action space %q", name)
	}
}

// SingleChargingSchedule maps action[i] to a one-period schedule for the
// i-th station.
type SingleChargingSchedule struct{}

func (SingleChargingSchedule) Name() string { return "single_charging_schedule" }

func (SingleChargingSchedule) Size(t gym.Trained) int { return len(t.StationIDs()) }

func (SingleChargingSchedule) ToSchedule(t gym.Trained, action []float64) (model.Schedule, error) {
	ids := t.StationIDs()
	if len(action) != len(ids) {
		return nil, fmt.Errorf("got %d values for %d stations: %w", len(action), len(ids), ErrActionShape)
	}
	schedule := make(model.Schedule, len(ids))
	for i, id := range ids {
		schedule[id] = []float64{action[i]}
	}
	return schedule, nil
}

// ZeroCenteredSingleChargingSchedule is SingleChargingSchedule with each
// action shifted so 0 maps to the middle of the station's pilot range.
type ZeroCenteredSingleChargingSchedule struct{}

func (ZeroCenteredSingleChargingSchedule) Name() string {
	return "zero_centered_single_charging_schedule"
}

func (ZeroCenteredSingleChargingSchedule) Size(t gym.Trained) int { return len(t.StationIDs()) }

func (ZeroCenteredSingleChargingSchedule) ToSchedule(t gym.Trained, action []float64) (model.Schedule, error) {
	schedule, err := SingleChargingSchedule{}.ToSchedule(t, action)
	if err != nil {
		return nil, err
	}
	for id, pilots := range schedule {
		p, err := t.AllowablePilotSignals(id)
		if err != nil {
			return nil, err
		}
		hi, lo := p.MaxPilot(), p.MinPilot()
		if math.IsInf(hi, 1) {
			hi = lo
		}
		pilots[0] += (hi + lo) / 2
	}
	return schedule, nil
}
