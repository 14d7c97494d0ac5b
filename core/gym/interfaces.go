package gym

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/logger"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// ErrUnknownStation is returned when a schedule names a station that is not
// registered in the network.
var ErrUnknownStation = errors.New("station not found in network")

// Trained is the read-only view of a simulation used by trained agents and
// environments.
type Trained interface {
	StationIDs() []string
	ActiveStationIDs() []string
	ActiveSessions() []model.EV
	IsDone() bool
	// ChargingRates returns a copy of the realized charging rates.
	ChargingRates() *mat.Dense
	CurrentTime() int
	AllowablePilotSignals(stationID string) (model.PilotSignals, error)
	MaxPilotSignal(stationID string) (float64, error)
	MinPilotSignal(stationID string) (float64, error)
	IsFeasibleEVSE(schedule model.Schedule) (bool, error)
	IsFeasible(schedule model.Schedule, opts model.FeasibilityOptions) (bool, error)
	LastEnergyDelivered() float64
	CurrentConstraintCurrents(schedule model.Schedule) []float64
	ConstraintMatrix() *mat.Dense
	Magnitudes() []float64
}

// Training extends Trained with the ability to advance the simulation.
type Training interface {
	Trained
	Step(schedule model.Schedule, forceFeasibility bool) (done, feasible bool, err error)
}

// TrainedInterface implements Trained on top of an Engine. The engine is not
// copied: changes made to it elsewhere are visible through the interface.
type TrainedInterface struct {
	engine Engine
	log    logger.Logger
}

var _ Trained = (*TrainedInterface)(nil)

// NewTrainedInterface wraps engine. A nil logger discards warnings.
func NewTrainedInterface(engine Engine, log logger.Logger) *TrainedInterface {
	if log == nil {
		log = logger.Nop()
	}
	return &TrainedInterface{engine: engine, log: log}
}

// Engine returns the wrapped engine.
func (i *TrainedInterface) Engine() Engine { return i.engine }

func (i *TrainedInterface) StationIDs() []string { return i.engine.Network().StationIDs() }

func (i *TrainedInterface) ActiveStationIDs() []string {
	return i.engine.Network().ActiveStationIDs()
}

// ActiveSessions returns the EVs currently plugged in and not fully charged.
func (i *TrainedInterface) ActiveSessions() []model.EV { return i.engine.ActiveEVs() }

// IsDone reports whether the engine's event queue is empty.
func (i *TrainedInterface) IsDone() bool { return i.engine.EventQueue().Empty() }

func (i *TrainedInterface) CurrentTime() int { return i.engine.Iteration() }

// ChargingRates returns a copy of the engine's charging rate history. Rows
// are stations, columns are iterations.
func (i *TrainedInterface) ChargingRates() *mat.Dense {
	return copyMatrix(i.engine.ChargingRates())
}

func (i *TrainedInterface) AllowablePilotSignals(stationID string) (model.PilotSignals, error) {
	return i.engine.Network().AllowablePilotSignals(stationID)
}

func (i *TrainedInterface) MaxPilotSignal(stationID string) (float64, error) {
	p, err := i.AllowablePilotSignals(stationID)
	if err != nil {
		return 0, err
	}
	return p.MaxPilot(), nil
}

func (i *TrainedInterface) MinPilotSignal(stationID string) (float64, error) {
	p, err := i.AllowablePilotSignals(stationID)
	if err != nil {
		return 0, err
	}
	return p.MinPilot(), nil
}

// LastEnergyDelivered returns the total rate, in amp-periods, delivered to
// the active EVs during the last period.
func (i *TrainedInterface) LastEnergyDelivered() float64 {
	var total float64
	for _, ev := range i.engine.ActiveEVs() {
		total += ev.CurrentChargingRate
	}
	return total
}

// CurrentConstraintCurrents returns the magnitude of the current through
// each constraint at the first step of schedule.
func (i *TrainedInterface) CurrentConstraintCurrents(schedule model.Schedule) []float64 {
	c := i.engine.Network().ConstraintCurrent(schedule, []int{0}, false)
	if c == nil {
		return nil
	}
	r, _ := c.Dims()
	out := make([]float64, r)
	for k := 0; k < r; k++ {
		out[k] = cmplx.Abs(c.At(k, 0))
	}
	return out
}

func (i *TrainedInterface) ConstraintMatrix() *mat.Dense {
	return copyMatrix(i.engine.Network().ConstraintMatrix())
}

func (i *TrainedInterface) Magnitudes() []float64 {
	return append([]float64(nil), i.engine.Network().Magnitudes()...)
}

// IsFeasibleEVSE reports whether every station in schedule can accept the
// pilots assigned to it. It returns an error wrapping ErrUnknownStation when
// the schedule names a station missing from the network.
func (i *TrainedInterface) IsFeasibleEVSE(schedule model.Schedule) (bool, error) {
	net := i.engine.Network()
	known := make(map[string]struct{})
	for _, id := range net.StationIDs() {
		known[id] = struct{}{}
	}
	ids := schedule.StationIDs()
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return false, fmt.Errorf("station %s in schedule: %w", id, ErrUnknownStation)
		}
	}
	for _, id := range ids {
		pilots, err := net.AllowablePilotSignals(id)
		if err != nil {
			return false, fmt.Errorf("station %s: %w", id, err)
		}
		if !pilots.AllowsAll(schedule[id]) {
			return false, nil
		}
	}
	return true, nil
}

// IsFeasible checks schedule against both the network constraints and the
// per-device pilot constraints. Both checks always run.
func (i *TrainedInterface) IsFeasible(schedule model.Schedule, opts model.FeasibilityOptions) (bool, error) {
	constraintsOK := i.engine.Network().IsFeasible(schedule, opts)
	evseOK, err := i.IsFeasibleEVSE(schedule)
	if err != nil {
		return false, err
	}
	return constraintsOK && evseOK, nil
}

func copyMatrix(m mat.Matrix) *mat.Dense {
	if m == nil {
		return &mat.Dense{}
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(r, c, nil)
	d.Copy(m)
	return d
}
