package model

import "math"

// DefaultDeadbandEnd is the lowest non-zero pilot accepted by a deadband EVSE.
const DefaultDeadbandEnd = 6

// EVSE is a charging station device identified by its station id.
type EVSE interface {
	ID() string
	AllowablePilotSignals() PilotSignals
}

// ContinuousEVSE accepts any pilot in [MinRate, MaxRate] as well as 0.
type ContinuousEVSE struct {
	StationID string
	MinRate   float64
	MaxRate   float64
}

// NewEVSE returns a continuous EVSE. A non-positive maxRate means the device
// has no upper bound.
func NewEVSE(id string, minRate, maxRate float64) *ContinuousEVSE {
	if maxRate <= 0 {
		maxRate = math.Inf(1)
	}
	return &ContinuousEVSE{StationID: id, MinRate: minRate, MaxRate: maxRate}
}

// NewDeadbandEVSE returns a continuous EVSE that cannot charge below
// deadbandEnd except when switched off.
func NewDeadbandEVSE(id string, deadbandEnd, maxRate float64) *ContinuousEVSE {
	if deadbandEnd <= 0 {
		deadbandEnd = DefaultDeadbandEnd
	}
	if maxRate <= 0 {
		maxRate = 32
	}
	return &ContinuousEVSE{StationID: id, MinRate: deadbandEnd, MaxRate: maxRate}
}

func (e *ContinuousEVSE) ID() string { return e.StationID }

func (e *ContinuousEVSE) AllowablePilotSignals() PilotSignals {
	return ContinuousPilots(e.MinRate, e.MaxRate)
}

// FiniteRatesEVSE accepts only the pilots listed in Rates.
type FiniteRatesEVSE struct {
	StationID string
	Rates     []float64
}

// NewFiniteRatesEVSE returns a discrete EVSE. The device can always be
// switched off, so 0 is added to the allowed rates.
func NewFiniteRatesEVSE(id string, rates []float64) *FiniteRatesEVSE {
	withZero := append([]float64{0}, rates...)
	return &FiniteRatesEVSE{StationID: id, Rates: DiscretePilots(withZero).Rates}
}

func (e *FiniteRatesEVSE) ID() string { return e.StationID }

func (e *FiniteRatesEVSE) AllowablePilotSignals() PilotSignals {
	return DiscretePilots(e.Rates)
}
