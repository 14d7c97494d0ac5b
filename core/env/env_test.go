package env

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/network"
	"github.com/caltech-netlab/gym-acnportal/core/policy"
	"github.com/caltech-netlab/gym-acnportal/core/sim"
	"github.com/caltech-netlab/gym-acnportal/core/steplog"
	"github.com/caltech-netlab/gym-acnportal/internal/eventbus"
)

// twoStationFactory replays two sessions: A from 0 to 6 wanting 2 kWh and B
// from 2 to 8 wanting 1 kWh.
func twoStationFactory(t *testing.T, aggregateCap float64) EngineFactory {
	t.Helper()
	return func() (gym.Engine, error) {
		net, err := network.SimpleACN([]string{"A", "B"}, aggregateCap, 208)
		if err != nil {
			return nil, err
		}
		evs := []model.EV{
			{SessionID: "a", StationID: "A", Arrival: 0, Departure: 6, RequestedEnergy: 2},
			{SessionID: "b", StationID: "B", Arrival: 2, Departure: 8, RequestedEnergy: 1},
		}
		return sim.New(net, sim.SessionEvents(evs), sim.Config{PeriodMinutes: 5, MaxRecompute: 1}, nil), nil
	}
}

type recordingSink struct {
	mu       sync.Mutex
	steps    []metrics.StepEvent
	episodes []metrics.EpisodeSummary
}

func (r *recordingSink) RecordStep(ev metrics.StepEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, ev)
	return nil
}

func (r *recordingSink) RecordEpisode(s metrics.EpisodeSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes = append(r.episodes, s)
	return nil
}

type memStore struct {
	steplog.NopStore
	recs []steplog.Record
}

func (m *memStore) Append(_ context.Context, rec steplog.Record) error {
	m.recs = append(m.recs, rec)
	return nil
}

type constantPolicy struct{ v float64 }

func (constantPolicy) Name() string { return "constant" }

func (p constantPolicy) Act(t gym.Trained) ([]float64, error) {
	out := make([]float64, len(t.StationIDs()))
	for i := range out {
		out[i] = p.v
	}
	return out, nil
}

func TestNewRejectsUnknownNames(t *testing.T) {
	f := twoStationFactory(t, 48)
	_, err := New(f, Config{Action: "matrix"}, nil)
	assert.Error(t, err)
	_, err = New(f, Config{Observations: []string{"weather"}}, nil)
	assert.Error(t, err)
	_, err = New(f, Config{Rewards: []string{"profit"}}, nil)
	assert.Error(t, err)
	_, err = New(nil, Config{}, nil)
	assert.Error(t, err)
}

func TestStepBeforeReset(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{}, nil)
	require.NoError(t, err)
	_, err = e.Step([]float64{0, 0})
	assert.ErrorIs(t, err, ErrNotReset)
	assert.Nil(t, e.Interface())
}

func TestResetObservation(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{Observations: append(DefaultObservations, "charging_rates")}, nil)
	require.NoError(t, err)
	obs, err := e.Reset()
	require.NoError(t, err)
	assert.NotEmpty(t, e.EpisodeID())

	assert.Equal(t, 0.0, obs["timestep"].At(0, 0))
	assert.Equal(t, 6.0, obs["departures"].At(0, 0))
	assert.Equal(t, 0.0, obs["departures"].At(1, 0))
	assert.Equal(t, 2.0, obs["demands"].At(0, 0))
	assert.Equal(t, 48.0, obs["magnitudes"].At(0, 0))
	r, c := obs["constraint_matrix"].Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 0.0, obs["charging_rates"].At(0, 0))
}

func TestStep(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{Observations: []string{"timestep", "departures", "demands", "charging_rates"}}, nil)
	require.NoError(t, err)
	sink := &recordingSink{}
	store := &memStore{}
	bus := eventbus.NewTyped[metrics.StepEvent]()
	sub := bus.Subscribe()
	e.SetMetricsSink(sink)
	e.SetStepLog(store)
	e.SetEventBus(bus)
	_, err = e.Reset()
	require.NoError(t, err)

	_, err = e.Step([]float64{32})
	assert.ErrorIs(t, err, ErrActionShape)

	res, err := e.Step([]float64{32, 0})
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.True(t, res.Info.Feasible)
	assert.Equal(t, 1, res.Info.Iteration)
	assert.InDelta(t, 32, res.Reward, 1e-9)
	assert.InDelta(t, 32, res.Info.Rewards["soft_charging_reward"], 1e-9)
	assert.Equal(t, 1.0, res.Observation["timestep"].At(0, 0))
	assert.Equal(t, 5.0, res.Observation["departures"].At(0, 0))
	assert.InDelta(t, 2-model.AmpPeriodsToKWh(32, 208, 5), res.Observation["demands"].At(0, 0), 1e-9)
	assert.Equal(t, 32.0, res.Observation["charging_rates"].At(0, 0))

	require.Len(t, sink.steps, 1)
	assert.Equal(t, e.EpisodeID(), sink.steps[0].EpisodeID)
	assert.Equal(t, 1, sink.steps[0].Step)
	assert.InDelta(t, 32, sink.steps[0].ChargingRate, 1e-9)
	require.Len(t, store.recs, 1)
	assert.Equal(t, []float64{32}, store.recs[0].Schedule["A"])
	ev := <-sub
	assert.Equal(t, 1, ev.Iteration)
}

func TestStepUnpluggedPenalty(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{}, nil)
	require.NoError(t, err)
	_, err = e.Reset()
	require.NoError(t, err)

	res, err := e.Step([]float64{16, 8})
	require.NoError(t, err)
	assert.InDelta(t, -8, res.Info.Rewards["unplugged_ev_violation"], 1e-9)
	assert.InDelta(t, 16-8, res.Reward, 1e-9)
}

func TestZeroCenteredAction(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{Action: "zero_centered_single_charging_schedule"}, nil)
	require.NoError(t, err)
	_, err = e.Reset()
	require.NoError(t, err)

	_, err = e.Step([]float64{0, -16})
	require.NoError(t, err)
	assert.Equal(t, model.Schedule{"A": {16}, "B": {0}}, e.Schedule())
	assert.Equal(t, "zero_centered_single_charging_schedule", e.ActionSpace().Name())
}

func TestRunToCompletion(t *testing.T) {
	e, err := New(twoStationFactory(t, 64), Config{ForceFeasibility: true}, nil)
	require.NoError(t, err)
	sink := &recordingSink{}
	e.SetMetricsSink(sink)

	sum, err := Run(context.Background(), e, policy.MaxRate{}, 0, 3)
	require.NoError(t, err)
	assert.True(t, e.Training().IsDone())
	assert.Equal(t, 8, sum.Iterations)
	assert.Equal(t, len(sink.steps), sum.Steps)
	assert.Zero(t, sum.InfeasibleSteps)
	assert.InDelta(t, 3, sum.EnergyRequested, 1e-9)
	assert.InDelta(t, 3, sum.EnergyDelivered, 1e-3)
	require.Len(t, sink.episodes, 1)
	assert.False(t, sink.episodes[0].Stalled)
}

func TestRunMaxSteps(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{}, nil)
	require.NoError(t, err)
	sum, err := Run(context.Background(), e, policy.Zero{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Steps)
	assert.Equal(t, 2, sum.Iterations)
	assert.Zero(t, sum.EnergyDelivered)
}

func TestRunStalls(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{ForceFeasibility: true}, nil)
	require.NoError(t, err)
	sink := &recordingSink{}
	e.SetMetricsSink(sink)

	sum, err := Run(context.Background(), e, constantPolicy{v: 40}, 0, 3)
	assert.ErrorIs(t, err, ErrStalled)
	assert.True(t, sum.Stalled)
	assert.Equal(t, 3, sum.Steps)
	assert.Equal(t, 3, sum.InfeasibleSteps)
	assert.Zero(t, sum.Iterations)
	require.Len(t, sink.episodes, 1)
	assert.True(t, sink.episodes[0].Stalled)
}

func TestRunCanceled(t *testing.T) {
	e, err := New(twoStationFactory(t, 48), Config{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, e, policy.Zero{}, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
