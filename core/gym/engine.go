package gym

import (
	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// Network is the view of the charging network needed by the interfaces.
type Network interface {
	// StationIDs returns all registered stations in a stable order.
	StationIDs() []string
	// ActiveStationIDs returns stations with an EV present that is not
	// finished charging.
	ActiveStationIDs() []string
	AllowablePilotSignals(stationID string) (model.PilotSignals, error)
	// ConstraintCurrent returns the current through each constraint
	// (rows) at each requested time index (columns).
	ConstraintCurrent(schedule model.Schedule, timeIndices []int, linear bool) *mat.CDense
	// IsFeasible checks the schedule against the network constraints only.
	IsFeasible(schedule model.Schedule, opts model.FeasibilityOptions) bool
	ConstraintMatrix() *mat.Dense
	Magnitudes() []float64
}

// EventQueue exposes only what the interfaces need from the engine queue.
type EventQueue interface {
	Empty() bool
}

// Engine is the simulation driven by the interfaces. Implementations own the
// simulation state; the interfaces only read it or call Step.
type Engine interface {
	Network() Network
	EventQueue() EventQueue
	// Step applies the schedule until the engine needs a new one and
	// reports whether the simulation is complete.
	Step(schedule model.Schedule) bool
	// ChargingRates returns the realized rates, stations x iterations.
	ChargingRates() mat.Matrix
	// MaxRecompute is the maximum number of periods between re-plans. 0
	// means the engine only re-plans on events.
	MaxRecompute() int
	Iteration() int
	ActiveEVs() []model.EV
}
