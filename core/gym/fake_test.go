package gym

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/model"
)

type fakeNetwork struct {
	ids         []string
	active      []string
	pilots      map[string]model.PilotSignals
	feasible    bool
	feasibleHit int
	current     *mat.CDense
	matrix      *mat.Dense
	magnitudes  []float64
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{pilots: map[string]model.PilotSignals{}, feasible: true}
}

func (n *fakeNetwork) add(id string, p model.PilotSignals) *fakeNetwork {
	n.ids = append(n.ids, id)
	n.pilots[id] = p
	return n
}

func (n *fakeNetwork) StationIDs() []string       { return n.ids }
func (n *fakeNetwork) ActiveStationIDs() []string { return n.active }

func (n *fakeNetwork) AllowablePilotSignals(id string) (model.PilotSignals, error) {
	p, ok := n.pilots[id]
	if !ok {
		return model.PilotSignals{}, fmt.Errorf("station %s: %w", id, ErrUnknownStation)
	}
	return p, nil
}

func (n *fakeNetwork) ConstraintCurrent(model.Schedule, []int, bool) *mat.CDense { return n.current }

func (n *fakeNetwork) IsFeasible(model.Schedule, model.FeasibilityOptions) bool {
	n.feasibleHit++
	return n.feasible
}

func (n *fakeNetwork) ConstraintMatrix() *mat.Dense { return n.matrix }
func (n *fakeNetwork) Magnitudes() []float64        { return n.magnitudes }

type fakeQueue struct{ empty bool }

func (q *fakeQueue) Empty() bool { return q.empty }

type fakeEngine struct {
	net          *fakeNetwork
	queue        *fakeQueue
	stepResult   bool
	steps        []model.Schedule
	rates        mat.Matrix
	maxRecompute int
	iteration    int
	evs          []model.EV
}

func newFakeEngine(net *fakeNetwork) *fakeEngine {
	return &fakeEngine{net: net, queue: &fakeQueue{}, maxRecompute: 1}
}

func (e *fakeEngine) Network() Network       { return e.net }
func (e *fakeEngine) EventQueue() EventQueue { return e.queue }
func (e *fakeEngine) Step(s model.Schedule) bool {
	e.steps = append(e.steps, s)
	e.iteration++
	return e.stepResult
}
func (e *fakeEngine) ChargingRates() mat.Matrix { return e.rates }
func (e *fakeEngine) MaxRecompute() int         { return e.maxRecompute }
func (e *fakeEngine) Iteration() int            { return e.iteration }
func (e *fakeEngine) ActiveEVs() []model.EV     { return e.evs }

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debugf(string, ...any)         {}
func (l *recordingLogger) Debugw(string, map[string]any) {}
func (l *recordingLogger) Infof(string, ...any)          {}
func (l *recordingLogger) Errorf(string, ...any)         {}
func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}
