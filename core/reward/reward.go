// Package reward provides reward functions for charging environments. Each
// function reads the state left by the last environment step and returns a
// scalar; environments sum the configured functions.
package reward

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// State is what reward functions can read from an environment.
type State interface {
	// Interface is the simulation after the last step.
	Interface() gym.Trained
	// Schedule is the schedule derived from the last action.
	Schedule() model.Schedule
	// PrevChargingRates are the charging rates before the last step.
	PrevChargingRates() *mat.Dense
}

// Func computes a reward from the environment state.
type Func func(State) (float64, error)

// Named pairs a reward function with the name used in configuration and
// step metrics.
type Named struct {
	Name string
	Fn   Func
}

var builtins = map[string]Func{
	"evse_violation":               EVSEViolation,
	"unplugged_ev_violation":       UnpluggedEVViolation,
	"current_constraint_violation": CurrentConstraintViolation,
	"soft_charging_reward":         SoftChargingReward,
	"hard_charging_reward":         HardChargingReward,
}

// Names returns the names of the built-in reward functions.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves reward function names, keeping their order.
func Lookup(names []string) ([]Named, error) {
	out := make([]Named, 0, len(names))
	for _, name := range names {
		fn, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("unknown reward function %q", name)
		}
		out = append(out, Named{Name: name, Fn: fn})
	}
	return out, nil
}

// Default is the reward set used when none is configured.
func Default() []Named {
	named, _ := Lookup([]string{
		"evse_violation",
		"unplugged_ev_violation",
		"current_constraint_violation",
		"soft_charging_reward",
	})
	return named
}

// EVSEViolation is the negative total distance between the scheduled pilots
// and the closest pilot each station accepts. A station missing from the
// network is an error.
func EVSEViolation(s State) (float64, error) {
	iface := s.Interface()
	schedule := s.Schedule()
	var violation float64
	for _, id := range schedule.StationIDs() {
		pilots, err := iface.AllowablePilotSignals(id)
		if err != nil {
			return 0, fmt.Errorf("evse violation: %w", err)
		}
		for _, p := range schedule[id] {
			violation += pilots.Violation(p)
		}
	}
	return -violation, nil
}

// UnpluggedEVViolation is the negative total of the first pilots sent to
// stations without an active EV.
func UnpluggedEVViolation(s State) (float64, error) {
	active := make(map[string]struct{})
	for _, id := range s.Interface().ActiveStationIDs() {
		active[id] = struct{}{}
	}
	schedule := s.Schedule()
	var violation float64
	for _, id := range schedule.StationIDs() {
		pilots := schedule[id]
		if _, ok := active[id]; ok || len(pilots) == 0 {
			continue
		}
		violation += math.Abs(pilots[0])
	}
	return -violation, nil
}

// CurrentConstraintViolation is the negative total amount by which the
// constraint currents exceed their magnitudes at the first step of the
// schedule.
func CurrentConstraintViolation(s State) (float64, error) {
	schedule := s.Schedule()
	if len(schedule) == 0 {
		return 0, nil
	}
	iface := s.Interface()
	currents := iface.CurrentConstraintCurrents(schedule)
	magnitudes := iface.Magnitudes()
	var violation float64
	for k, c := range currents {
		if k >= len(magnitudes) {
			break
		}
		if excess := c - magnitudes[k]; excess > 0 {
			violation += excess
		}
	}
	return -violation, nil
}

// SoftChargingReward is the charging delivered by the last step: the total
// of the current charging rates minus the total before the step.
func SoftChargingReward(s State) (float64, error) {
	return sum(s.Interface().ChargingRates()) - sum(s.PrevChargingRates()), nil
}

// HardChargingReward is SoftChargingReward when the schedule was feasible
// and 0 otherwise.
func HardChargingReward(s State) (float64, error) {
	ok, err := s.Interface().IsFeasible(s.Schedule(), model.FeasibilityOptions{})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return SoftChargingReward(s)
}

func sum(m *mat.Dense) float64 {
	if m == nil || m.IsEmpty() {
		return 0
	}
	return mat.Sum(m)
}
