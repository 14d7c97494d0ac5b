package model

import (
	"math"
	"sort"
)

// PilotSignals describes the pilot signals a single EVSE can accept. When
// Continuous is set the device accepts any value in [Min, Max] plus 0,
// otherwise it accepts exactly the values in Rates.
type PilotSignals struct {
	Continuous bool
	Min        float64
	Max        float64
	Rates      []float64 // sorted ascending
}

// ContinuousPilots returns the allowable set of a continuous device.
func ContinuousPilots(min, max float64) PilotSignals {
	return PilotSignals{Continuous: true, Min: min, Max: max}
}

// DiscretePilots returns the allowable set of a finite-rate device. The rates
// are copied, sorted and de-duplicated.
func DiscretePilots(rates []float64) PilotSignals {
	cp := append([]float64(nil), rates...)
	sort.Float64s(cp)
	out := cp[:0]
	for i, r := range cp {
		if i > 0 && r == cp[i-1] {
			continue
		}
		out = append(out, r)
	}
	return PilotSignals{Rates: out}
}

// Allows reports whether pilot is acceptable for the device.
func (p PilotSignals) Allows(pilot float64) bool {
	if p.Continuous {
		return pilot == 0 || (p.Min <= pilot && pilot <= p.Max)
	}
	i := sort.SearchFloat64s(p.Rates, pilot)
	return i < len(p.Rates) && p.Rates[i] == pilot
}

// AllowsAll reports whether every pilot in the sequence is acceptable.
func (p PilotSignals) AllowsAll(pilots []float64) bool {
	for _, v := range pilots {
		if !p.Allows(v) {
			return false
		}
	}
	return true
}

// Violation returns the distance between pilot and the closest acceptable
// value. It is 0 for acceptable pilots.
func (p PilotSignals) Violation(pilot float64) float64 {
	if p.Allows(pilot) {
		return 0
	}
	if p.Continuous {
		if pilot < p.Min {
			return math.Min(p.Min-pilot, math.Abs(pilot))
		}
		return pilot - p.Max
	}
	if len(p.Rates) == 0 {
		return math.Abs(pilot)
	}
	i := sort.SearchFloat64s(p.Rates, pilot)
	best := math.Inf(1)
	if i < len(p.Rates) {
		best = p.Rates[i] - pilot
	}
	if i > 0 {
		best = math.Min(best, pilot-p.Rates[i-1])
	}
	return best
}

// MaxPilot returns the largest acceptable pilot.
func (p PilotSignals) MaxPilot() float64 {
	if p.Continuous {
		return p.Max
	}
	if len(p.Rates) == 0 {
		return 0
	}
	return p.Rates[len(p.Rates)-1]
}

// MinPilot returns the smallest acceptable pilot, which is the lower bound of
// the interval for continuous devices.
func (p PilotSignals) MinPilot() float64 {
	if p.Continuous {
		return p.Min
	}
	if len(p.Rates) == 0 {
		return 0
	}
	return p.Rates[0]
}
