// Package sim is a small discrete-event charging simulator implementing the
// engine boundary of package gym.
package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/logger"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/network"
)

// Config holds simulator parameters.
type Config struct {
	// PeriodMinutes is the length of one iteration.
	PeriodMinutes float64 `json:"period_minutes"`
	// MaxRecompute is the maximum number of periods a schedule is applied
	// before a new one is requested. 0 re-plans on events only.
	MaxRecompute int `json:"max_recompute"`
}

// Simulator advances a charging network through time using externally
// supplied schedules.
type Simulator struct {
	net          *network.ChargingNetwork
	queue        *EventQueue
	period       float64
	maxRecompute int
	log          logger.Logger

	iteration     int
	schedule      model.Schedule
	sinceSchedule int

	rates    [][]float64 // one column per iteration
	pilots   [][]float64
	sessions []*model.EV
}

var _ gym.Engine = (*Simulator)(nil)

// New creates a simulator over net and processes the events due at
// iteration 0.
func New(net *network.ChargingNetwork, events []Event, cfg Config, log logger.Logger) *Simulator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PeriodMinutes <= 0 {
		cfg.PeriodMinutes = 5
	}
	s := &Simulator{
		net:          net,
		queue:        NewEventQueue(events...),
		period:       cfg.PeriodMinutes,
		maxRecompute: cfg.MaxRecompute,
		log:          log,
	}
	s.processEvents()
	return s
}

func (s *Simulator) Network() gym.Network       { return s.net }
func (s *Simulator) EventQueue() gym.EventQueue { return s.queue }
func (s *Simulator) MaxRecompute() int          { return s.maxRecompute }
func (s *Simulator) Iteration() int             { return s.iteration }

// ChargingNetwork returns the concrete network being simulated.
func (s *Simulator) ChargingNetwork() *network.ChargingNetwork { return s.net }

// PeriodMinutes returns the length of one iteration.
func (s *Simulator) PeriodMinutes() float64 { return s.period }

// SetMaxRecompute changes the re-plan horizon for subsequent steps.
func (s *Simulator) SetMaxRecompute(n int) { s.maxRecompute = n }

// Step installs schedule and simulates until a re-plan is needed or no
// events remain. It reports whether the simulation is complete.
func (s *Simulator) Step(schedule model.Schedule) bool {
	s.schedule = schedule.Clone()
	s.sinceSchedule = 0
	for !s.queue.Empty() {
		s.applyPeriod()
		s.iteration++
		s.sinceSchedule++
		resolve := s.processEvents()
		if s.maxRecompute > 0 && s.sinceSchedule >= s.maxRecompute {
			resolve = true
		}
		if resolve {
			break
		}
	}
	return s.queue.Empty()
}

func (s *Simulator) applyPeriod() {
	ids := s.net.StationIDs()
	rates := make([]float64, len(ids))
	pilots := make([]float64, len(ids))
	for i, id := range ids {
		pilot := s.schedule.PilotAt(id, s.sinceSchedule)
		pilots[i] = pilot
		ev := s.net.EVAt(id)
		if ev == nil {
			continue
		}
		voltage, _ := s.net.Voltage(id)
		rates[i] = ev.Charge(pilot, voltage, s.period)
	}
	s.rates = append(s.rates, rates)
	s.pilots = append(s.pilots, pilots)
}

// processEvents handles the events due at the current iteration and reports
// whether any of them requires a new schedule.
func (s *Simulator) processEvents() bool {
	resolve := false
	for _, e := range s.queue.PopDue(s.iteration) {
		switch e.Type {
		case EventPlugin:
			if err := s.net.Plugin(e.EV); err != nil {
				s.log.Warnf("dropping session %s: %v", e.EV.SessionID, err)
				continue
			}
			s.sessions = append(s.sessions, e.EV)
			departure := e.EV.Departure
			if departure <= s.iteration {
				departure = s.iteration + 1
			}
			s.queue.Add(Event{Time: departure, Type: EventUnplug, EV: e.EV})
			s.log.Debugf("plugin %s at %s", e.EV.SessionID, e.EV.StationID)
		case EventUnplug:
			if ev := s.net.Unplug(e.EV.StationID, e.EV.SessionID); ev != nil {
				s.log.Debugf("unplug %s from %s after %.3f kWh", ev.SessionID, ev.StationID, ev.EnergyDelivered)
			}
		case EventRecompute:
		}
		resolve = true
	}
	return resolve
}

// ChargingRates returns the realized rates as a new stations x iterations
// matrix.
func (s *Simulator) ChargingRates() mat.Matrix { return s.history(s.rates) }

// PilotSignals returns the applied pilots as a new stations x iterations
// matrix.
func (s *Simulator) PilotSignals() mat.Matrix { return s.history(s.pilots) }

func (s *Simulator) history(cols [][]float64) *mat.Dense {
	n := len(s.net.StationIDs())
	if len(cols) == 0 || n == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		for i, v := range col {
			if i < n {
				m.Set(i, j, v)
			}
		}
	}
	return m
}

// ActiveEVs returns copies of the EVs plugged in and not fully charged.
func (s *Simulator) ActiveEVs() []model.EV {
	var out []model.EV
	for _, ev := range s.net.Sessions() {
		if !ev.FullyCharged() {
			out = append(out, *ev)
		}
	}
	return out
}

// Sessions returns copies of every session that has plugged in so far.
func (s *Simulator) Sessions() []model.EV {
	out := make([]model.EV, len(s.sessions))
	for i, ev := range s.sessions {
		out[i] = *ev
	}
	return out
}

// EnergyDelivered returns the total energy (kWh) delivered so far.
func (s *Simulator) EnergyDelivered() float64 {
	var total float64
	for _, ev := range s.sessions {
		total += ev.EnergyDelivered
	}
	return total
}

// EnergyRequested returns the total energy (kWh) requested by the sessions
// that have plugged in so far.
func (s *Simulator) EnergyRequested() float64 {
	var total float64
	for _, ev := range s.sessions {
		total += ev.RequestedEnergy
	}
	return total
}
