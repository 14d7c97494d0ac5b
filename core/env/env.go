// Package env wraps a training interface into a reinforcement learning
// environment: actions become schedules, the simulation is stepped and an
// observation and a reward are computed after each step.
package env

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/logger"
	"github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/reward"
	"github.com/caltech-netlab/gym-acnportal/core/steplog"
	"github.com/caltech-netlab/gym-acnportal/internal/eventbus"
)

// ErrNotReset is returned by Step before the first Reset.
var ErrNotReset = errors.New("environment must be reset before stepping")

// EngineFactory builds a fresh simulation for each episode.
type EngineFactory func() (gym.Engine, error)

// Config selects the action space, observations and rewards.
type Config struct {
	Action           string   `json:"action"`
	Observations     []string `json:"observations"`
	Rewards          []string `json:"rewards"`
	ForceFeasibility bool     `json:"force_feasibility"`
}

// Info carries diagnostics about a step.
type Info struct {
	Feasible  bool
	Iteration int
	Rewards   map[string]float64
}

// StepResult is returned by Step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        Info
}

// energyReporter is implemented by engines that account for energy.
type energyReporter interface {
	EnergyDelivered() float64
	EnergyRequested() float64
}

// SimEnv is a charging environment driven one schedule at a time. It is not
// safe for concurrent use.
type SimEnv struct {
	factory   EngineFactory
	cfg       Config
	action    ActionSpace
	observers []Observer
	rewards   []reward.Named
	log       logger.Logger

	sink  metrics.MetricsSink
	store steplog.Store
	bus   *eventbus.TypedBus[metrics.StepEvent]

	iface     *gym.TrainingInterface
	schedule  model.Schedule
	prevRates *mat.Dense

	episodeID   string
	steps       int
	infeasible  int
	totalReward float64
	started     time.Time
}

var _ reward.State = (*SimEnv)(nil)

// New builds an environment. Unknown action, observation or reward names
// are errors.
func New(factory EngineFactory, cfg Config, log logger.Logger) (*SimEnv, error) {
	if factory == nil {
		return nil, errors.New("env: nil engine factory")
	}
	if log == nil {
		log = logger.Nop()
	}
	action, err := NewActionSpace(cfg.Action)
	if err != nil {
		return nil, err
	}
	obsNames := cfg.Observations
	if len(obsNames) == 0 {
		obsNames = DefaultObservations
	}
	obs, err := LookupObservers(obsNames)
	if err != nil {
		return nil, err
	}
	rewards := reward.Default()
	if len(cfg.Rewards) > 0 {
		if rewards, err = reward.Lookup(cfg.Rewards); err != nil {
			return nil, err
		}
	}
	return &SimEnv{
		factory:   factory,
		cfg:       cfg,
		action:    action,
		observers: obs,
		rewards:   rewards,
		log:       log,
		sink:      metrics.NopSink{},
		store:     steplog.NopStore{},
	}, nil
}

// SetMetricsSink configures the sink receiving step events.
func (e *SimEnv) SetMetricsSink(s metrics.MetricsSink) {
	if s == nil {
		s = metrics.NopSink{}
	}
	e.sink = s
}

// SetStepLog configures the store persisting steps.
func (e *SimEnv) SetStepLog(s steplog.Store) {
	if s == nil {
		s = steplog.NopStore{}
	}
	e.store = s
}

// SetEventBus configures the bus step events are published on.
func (e *SimEnv) SetEventBus(b *eventbus.TypedBus[metrics.StepEvent]) { e.bus = b }

// Interface returns the training interface of the current episode, nil
// before Reset.
func (e *SimEnv) Interface() gym.Trained {
	if e.iface == nil {
		return nil
	}
	return e.iface
}

// Training returns the mutable interface of the current episode.
func (e *SimEnv) Training() *gym.TrainingInterface { return e.iface }

// Schedule returns the schedule built from the last action.
func (e *SimEnv) Schedule() model.Schedule { return e.schedule }

// PrevChargingRates returns the charging rates before the last step.
func (e *SimEnv) PrevChargingRates() *mat.Dense { return e.prevRates }

// EpisodeID identifies the current episode.
func (e *SimEnv) EpisodeID() string { return e.episodeID }

// ActionSpace returns the configured action space.
func (e *SimEnv) ActionSpace() ActionSpace { return e.action }

// ForceFeasibility reports whether infeasible schedules are rejected.
func (e *SimEnv) ForceFeasibility() bool { return e.cfg.ForceFeasibility }

// Reset starts a new episode on a fresh engine.
func (e *SimEnv) Reset() (Observation, error) {
	engine, err := e.factory()
	if err != nil {
		return nil, err
	}
	e.iface = gym.NewTrainingInterface(engine, e.log)
	e.schedule = nil
	e.prevRates = &mat.Dense{}
	e.episodeID = uuid.NewString()
	e.steps, e.infeasible, e.totalReward = 0, 0, 0
	e.started = time.Now()
	e.log.Debugw("episode started", map[string]any{"episode_id": e.episodeID, "stations": len(e.iface.StationIDs())})
	return e.observe(), nil
}

// Step applies action and advances the simulation.
func (e *SimEnv) Step(action []float64) (StepResult, error) {
	if e.iface == nil {
		return StepResult{}, ErrNotReset
	}
	schedule, err := e.action.ToSchedule(e.iface, action)
	if err != nil {
		return StepResult{}, err
	}
	e.prevRates = e.iface.ChargingRates()
	e.schedule = schedule

	done, feasible, err := e.iface.Step(schedule, e.cfg.ForceFeasibility)
	if err != nil {
		return StepResult{}, err
	}
	components := make(map[string]float64, len(e.rewards))
	var total float64
	for _, r := range e.rewards {
		v, err := r.Fn(e)
		if err != nil {
			return StepResult{}, err
		}
		components[r.Name] = v
		total += v
	}
	e.steps++
	e.totalReward += total
	if !feasible {
		e.infeasible++
	}
	res := StepResult{
		Observation: e.observe(),
		Reward:      total,
		Done:        done,
		Info:        Info{Feasible: feasible, Iteration: e.iface.CurrentTime(), Rewards: components},
	}
	e.emit(res)
	return res, nil
}

func (e *SimEnv) observe() Observation {
	obs := make(Observation, len(e.observers))
	for _, o := range e.observers {
		obs[o.Name] = o.Fn(e.iface)
	}
	return obs
}

// emit forwards the step to the observers. Failures are logged and never
// interrupt training.
func (e *SimEnv) emit(res StepResult) {
	now := time.Now()
	ev := metrics.StepEvent{
		EpisodeID:      e.episodeID,
		Step:           e.steps,
		Iteration:      res.Info.Iteration,
		Reward:         res.Reward,
		Rewards:        res.Info.Rewards,
		Feasible:       res.Info.Feasible,
		Done:           res.Done,
		ChargingRate:   e.iface.LastEnergyDelivered(),
		ActiveStations: len(e.iface.ActiveStationIDs()),
		Time:           now,
	}
	if err := e.sink.RecordStep(ev); err != nil {
		e.log.Errorf("record step metrics: %v", err)
	}
	rec := steplog.Record{
		Timestamp: now,
		EpisodeID: e.episodeID,
		Step:      e.steps,
		Iteration: res.Info.Iteration,
		Schedule:  e.schedule,
		Reward:    res.Reward,
		Rewards:   res.Info.Rewards,
		Feasible:  res.Info.Feasible,
		Done:      res.Done,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.Append(ctx, rec); err != nil {
		e.log.Errorf("append step log: %v", err)
	}
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// Summary aggregates the current episode.
func (e *SimEnv) Summary() metrics.EpisodeSummary {
	sum := metrics.EpisodeSummary{
		EpisodeID:       e.episodeID,
		Steps:           e.steps,
		TotalReward:     e.totalReward,
		InfeasibleSteps: e.infeasible,
		Duration:        time.Since(e.started),
		Time:            time.Now(),
	}
	if e.iface != nil {
		sum.Iterations = e.iface.CurrentTime()
		if er, ok := e.iface.Engine().(energyReporter); ok {
			sum.EnergyDelivered = er.EnergyDelivered()
			sum.EnergyRequested = er.EnergyRequested()
		}
	}
	return sum
}

// Finish records the episode summary with the sink when it supports it.
func (e *SimEnv) Finish(stalled bool) metrics.EpisodeSummary {
	sum := e.Summary()
	sum.Stalled = stalled
	if rec, ok := e.sink.(metrics.EpisodeRecorder); ok {
		if err := rec.RecordEpisode(sum); err != nil {
			e.log.Errorf("record episode metrics: %v", err)
		}
	}
	e.log.Infof("episode %s finished after %d steps, reward %.3f, %.3f/%.3f kWh",
		sum.EpisodeID, sum.Steps, sum.TotalReward, sum.EnergyDelivered, sum.EnergyRequested)
	return sum
}
