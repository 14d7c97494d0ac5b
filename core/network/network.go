// Package network models a charging network: its EVSEs, the EVs plugged into
// them and the linear current constraints of the shared infrastructure.
package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

var (
	// ErrDuplicateStation is returned when registering a station id twice.
	ErrDuplicateStation = errors.New("station already registered")
	// ErrStationOccupied is returned when plugging an EV into a busy station.
	ErrStationOccupied = errors.New("station occupied")
)

type station struct {
	evse    model.EVSE
	voltage float64
	phase   float64 // radians
	ev      *model.EV
}

// Constraint bounds the magnitude of a weighted sum of station currents.
type Constraint struct {
	ID        string
	Loads     map[string]float64
	Magnitude float64
}

// ChargingNetwork holds the stations of a site and its constraints.
type ChargingNetwork struct {
	ids         []string
	stations    map[string]*station
	constraints []Constraint

	// cached constraint matrix, rebuilt when stations or constraints change
	matrix *mat.Dense
}

var _ gym.Network = (*ChargingNetwork)(nil)

// New returns an empty network.
func New() *ChargingNetwork {
	return &ChargingNetwork{stations: make(map[string]*station)}
}

// RegisterEVSE adds a station operating at voltage with the given phase
// angle in degrees.
func (n *ChargingNetwork) RegisterEVSE(evse model.EVSE, voltage, phaseDeg float64) error {
	id := evse.ID()
	if _, ok := n.stations[id]; ok {
		return fmt.Errorf("register %s: %w", id, ErrDuplicateStation)
	}
	n.stations[id] = &station{evse: evse, voltage: voltage, phase: phaseDeg * math.Pi / 180}
	n.ids = append(n.ids, id)
	n.matrix = nil
	return nil
}

// AddConstraint adds a constraint on the stations named in loads. Stations
// not in loads have a zero coefficient.
func (n *ChargingNetwork) AddConstraint(id string, loads map[string]float64, magnitude float64) error {
	for sid := range loads {
		if _, ok := n.stations[sid]; !ok {
			return fmt.Errorf("constraint %s: %s: %w", id, sid, gym.ErrUnknownStation)
		}
	}
	cp := make(map[string]float64, len(loads))
	for k, v := range loads {
		cp[k] = v
	}
	n.constraints = append(n.constraints, Constraint{ID: id, Loads: cp, Magnitude: magnitude})
	n.matrix = nil
	return nil
}

// StationIDs returns station ids in registration order.
func (n *ChargingNetwork) StationIDs() []string {
	return append([]string(nil), n.ids...)
}

// ActiveStationIDs returns stations with an EV that still needs energy.
func (n *ChargingNetwork) ActiveStationIDs() []string {
	var out []string
	for _, id := range n.ids {
		if ev := n.stations[id].ev; ev != nil && !ev.FullyCharged() {
			out = append(out, id)
		}
	}
	return out
}

// ConstraintIDs returns the constraint ids in matrix row order.
func (n *ChargingNetwork) ConstraintIDs() []string {
	out := make([]string, len(n.constraints))
	for i, c := range n.constraints {
		out[i] = c.ID
	}
	return out
}

func (n *ChargingNetwork) AllowablePilotSignals(stationID string) (model.PilotSignals, error) {
	s, ok := n.stations[stationID]
	if !ok {
		return model.PilotSignals{}, fmt.Errorf("station %s: %w", stationID, gym.ErrUnknownStation)
	}
	return s.evse.AllowablePilotSignals(), nil
}

// Voltage returns the voltage of a station.
func (n *ChargingNetwork) Voltage(stationID string) (float64, error) {
	s, ok := n.stations[stationID]
	if !ok {
		return 0, fmt.Errorf("station %s: %w", stationID, gym.ErrUnknownStation)
	}
	return s.voltage, nil
}

// Plugin attaches ev to its station.
func (n *ChargingNetwork) Plugin(ev *model.EV) error {
	s, ok := n.stations[ev.StationID]
	if !ok {
		return fmt.Errorf("plugin %s: %w", ev.StationID, gym.ErrUnknownStation)
	}
	if s.ev != nil {
		return fmt.Errorf("plugin %s at %s: %w", ev.SessionID, ev.StationID, ErrStationOccupied)
	}
	s.ev = ev
	return nil
}

// Unplug detaches the EV of the given session. It returns the EV or nil when
// the station hosts another session.
func (n *ChargingNetwork) Unplug(stationID, sessionID string) *model.EV {
	s, ok := n.stations[stationID]
	if !ok || s.ev == nil || s.ev.SessionID != sessionID {
		return nil
	}
	ev := s.ev
	s.ev = nil
	return ev
}

// EVAt returns the EV plugged into station, if any.
func (n *ChargingNetwork) EVAt(stationID string) *model.EV {
	if s, ok := n.stations[stationID]; ok {
		return s.ev
	}
	return nil
}

// ConstraintMatrix returns the constraints x stations coefficient matrix.
// The returned matrix must not be modified.
func (n *ChargingNetwork) ConstraintMatrix() *mat.Dense {
	if n.matrix != nil {
		return n.matrix
	}
	if len(n.constraints) == 0 || len(n.ids) == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(n.constraints), len(n.ids), nil)
	for i, c := range n.constraints {
		for j, id := range n.ids {
			m.Set(i, j, c.Loads[id])
		}
	}
	n.matrix = m
	return m
}

// Magnitudes returns the bound of each constraint in row order.
func (n *ChargingNetwork) Magnitudes() []float64 {
	out := make([]float64, len(n.constraints))
	for i, c := range n.constraints {
		out[i] = c.Magnitude
	}
	return out
}

// scheduleMatrix lays the requested time indices of schedule out as a
// stations x len(timeIndices) matrix. Unknown stations are ignored and
// missing entries are 0.
func (n *ChargingNetwork) scheduleMatrix(schedule model.Schedule, timeIndices []int) *mat.Dense {
	s := mat.NewDense(len(n.ids), len(timeIndices), nil)
	for i, id := range n.ids {
		for j, t := range timeIndices {
			s.Set(i, j, schedule.PilotAt(id, t))
		}
	}
	return s
}

// ConstraintCurrent returns the current through each constraint for each
// time index. When linear is false each station's current is rotated by its
// phase angle and the result is complex.
func (n *ChargingNetwork) ConstraintCurrent(schedule model.Schedule, timeIndices []int, linear bool) *mat.CDense {
	if len(n.constraints) == 0 || len(n.ids) == 0 || len(timeIndices) == 0 {
		return nil
	}
	a := n.ConstraintMatrix()
	s := n.scheduleMatrix(schedule, timeIndices)
	rows, cols := len(n.constraints), len(timeIndices)
	out := mat.NewCDense(rows, cols, nil)

	if linear {
		var re mat.Dense
		re.Mul(a, s)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, complex(re.At(i, j), 0))
			}
		}
		return out
	}

	cos := make([]float64, len(n.ids))
	sin := make([]float64, len(n.ids))
	for i, id := range n.ids {
		phi := n.stations[id].phase
		cos[i], sin[i] = math.Cos(phi), math.Sin(phi)
	}
	var aCos, aSin, re, im mat.Dense
	aCos.Mul(a, mat.NewDiagDense(len(cos), cos))
	aSin.Mul(a, mat.NewDiagDense(len(sin), sin))
	re.Mul(&aCos, s)
	im.Mul(&aSin, s)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, complex(re.At(i, j), im.At(i, j)))
		}
	}
	return out
}

// IsFeasible reports whether schedule satisfies every constraint at every
// time step. Stations missing from the network are ignored.
func (n *ChargingNetwork) IsFeasible(schedule model.Schedule, opts model.FeasibilityOptions) bool {
	horizon := schedule.Horizon()
	if len(schedule) == 0 || horizon == 0 || len(n.constraints) == 0 {
		return true
	}
	idx := make([]int, horizon)
	for t := range idx {
		idx[t] = t
	}
	currents := n.ConstraintCurrent(schedule, idx, opts.Linear)
	if currents == nil {
		return true
	}
	violation, relative := opts.Tolerances()
	for i, c := range n.constraints {
		tol := math.Max(violation, relative*c.Magnitude)
		for t := 0; t < horizon; t++ {
			v := currents.At(i, t)
			var got float64
			if opts.Linear {
				got = real(v)
			} else {
				got = cmplxAbs(v)
			}
			if got > c.Magnitude+tol {
				return false
			}
		}
	}
	return true
}

// Sessions returns the EVs currently plugged in, ordered by station id.
func (n *ChargingNetwork) Sessions() []*model.EV {
	ids := append([]string(nil), n.ids...)
	sort.Strings(ids)
	var out []*model.EV
	for _, id := range ids {
		if ev := n.stations[id].ev; ev != nil {
			out = append(out, ev)
		}
	}
	return out
}

func cmplxAbs(c complex128) float64 { return math.Hypot(real(c), imag(c)) }
