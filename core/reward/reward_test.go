package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/caltech-netlab/gym-acnportal/core/gym"
	"github.com/caltech-netlab/gym-acnportal/core/model"
	"github.com/caltech-netlab/gym-acnportal/core/network"
	"github.com/caltech-netlab/gym-acnportal/core/sim"
)

type testState struct {
	iface    gym.Trained
	schedule model.Schedule
	prev     *mat.Dense
}

func (s testState) Interface() gym.Trained        { return s.iface }
func (s testState) Schedule() model.Schedule      { return s.schedule }
func (s testState) PrevChargingRates() *mat.Dense { return s.prev }

// stubTrained overrides the parts of gym.Trained a test needs.
type stubTrained struct {
	gym.Trained
	rates  *mat.Dense
	active []string
}

func (s stubTrained) ChargingRates() *mat.Dense  { return s.rates }
func (s stubTrained) ActiveStationIDs() []string { return s.active }

func trained(t *testing.T, net *network.ChargingNetwork) gym.Trained {
	t.Helper()
	return gym.NewTrainedInterface(sim.New(net, nil, sim.Config{}, nil), nil)
}

func continuousNetwork(t *testing.T) *network.ChargingNetwork {
	t.Helper()
	n := network.New()
	require.NoError(t, n.RegisterEVSE(model.NewEVSE("TS-001", 0, 32), 208, 0))
	require.NoError(t, n.RegisterEVSE(model.NewEVSE("TS-002", 6, 16), 208, 0))
	require.NoError(t, n.RegisterEVSE(model.NewEVSE("TS-003", 6, 32), 208, 0))
	require.NoError(t, n.AddConstraint("placeholder", map[string]float64{"TS-001": 1, "TS-002": 1, "TS-003": 1}, math.Inf(1)))
	return n
}

func discreteNetwork(t *testing.T) *network.ChargingNetwork {
	t.Helper()
	n := network.New()
	rates := make([]float64, 0, 31)
	for r := 1; r < 32; r++ {
		rates = append(rates, float64(r))
	}
	require.NoError(t, n.RegisterEVSE(model.NewFiniteRatesEVSE("TS-001", []float64{8, 16, 24, 32}), 208, 0))
	require.NoError(t, n.RegisterEVSE(model.NewFiniteRatesEVSE("TS-002", []float64{6, 16}), 208, 0))
	require.NoError(t, n.RegisterEVSE(model.NewFiniteRatesEVSE("TS-003", rates), 208, 0))
	return n
}

func TestEVSEViolationUnknownStation(t *testing.T) {
	st := testState{iface: trained(t, network.New()), schedule: model.Schedule{"TS-001": {0}, "TS-002": {0}}}
	_, err := EVSEViolation(st)
	assert.ErrorIs(t, err, gym.ErrUnknownStation)
}

func TestEVSEViolationContinuous(t *testing.T) {
	iface := trained(t, continuousNetwork(t))

	v, err := EVSEViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {34, 31}, "TS-002": {4, 5}, "TS-003": {0, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, -5, v, 1e-9)

	v, err = EVSEViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {31, 16}, "TS-002": {7, 16}, "TS-003": {0, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestEVSEViolationDiscrete(t *testing.T) {
	iface := trained(t, discreteNetwork(t))

	v, err := EVSEViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {4, 19}, "TS-002": {8, 18}, "TS-003": {0, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, -11, v, 1e-9)

	v, err = EVSEViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {8, 24}, "TS-002": {6, 16}, "TS-003": {0, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestUnpluggedEVViolation(t *testing.T) {
	schedule := model.Schedule{"TS-001": {8, 24}, "TS-002": {6, 16}}
	cases := []struct {
		name     string
		schedule model.Schedule
		active   []string
		want     float64
	}{
		{"empty schedules", model.Schedule{"TS-001": {}, "TS-002": {}}, nil, 0},
		{"all unplugged", schedule, []string{"TS-003"}, -14},
		{"some unplugged", schedule, []string{"TS-002", "TS-003"}, -8},
		{"none unplugged", schedule, []string{"TS-001", "TS-002", "TS-003"}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := UnpluggedEVViolation(testState{iface: stubTrained{active: c.active}, schedule: c.schedule})
			require.NoError(t, err)
			assert.InDelta(t, c.want, v, 1e-9)
		})
	}
}

func TestUnpluggedEVViolationStationOrder(t *testing.T) {
	// 1e16 absorbs a lone 1, so only ascending station order sums to 1e16+2.
	schedule := model.Schedule{"A": {1}, "B": {1}, "C": {1e16}}
	state := testState{iface: stubTrained{}, schedule: schedule}
	for i := 0; i < 20; i++ {
		v, err := UnpluggedEVViolation(state)
		require.NoError(t, err)
		assert.Equal(t, -(1e16 + 2), v)
	}
}

func TestCurrentConstraintViolation(t *testing.T) {
	net, err := network.SimpleACN([]string{"TS-001", "TS-002", "TS-003"}, 10, 208)
	require.NoError(t, err)
	iface := trained(t, net)

	v, err := CurrentConstraintViolation(testState{iface: iface})
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = CurrentConstraintViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {32, 16}, "TS-002": {16, 0}, "TS-003": {20, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, -58, v, 1e-9)

	v, err = CurrentConstraintViolation(testState{iface: iface, schedule: model.Schedule{"TS-001": {4, 32}, "TS-002": {0, 16}, "TS-003": {6, 20}}})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestSoftChargingReward(t *testing.T) {
	curr := mat.NewDense(3, 3, []float64{1, 1, 2, 1, 0, 1, 0, 0, 0})
	prev := mat.NewDense(3, 3, []float64{1, 1, 0, 1, 0, 0, 0, 0, 0})
	v, err := SoftChargingReward(testState{iface: stubTrained{rates: curr}, prev: prev})
	require.NoError(t, err)
	assert.InDelta(t, 3, v, 1e-9)

	v, err = SoftChargingReward(testState{iface: stubTrained{rates: curr}, prev: &mat.Dense{}})
	require.NoError(t, err)
	assert.InDelta(t, 6, v, 1e-9)
}

func TestHardChargingReward(t *testing.T) {
	ev := model.EV{SessionID: "s", StationID: "TS-001", Arrival: 0, Departure: 4, RequestedEnergy: 10}
	s := sim.New(continuousNetwork(t), []sim.Event{sim.PluginEvent(ev)}, sim.Config{MaxRecompute: 1}, nil)
	iface := gym.NewTrainedInterface(s, nil)
	prev := iface.ChargingRates()
	s.Step(model.Schedule{"TS-001": {16}})

	v, err := HardChargingReward(testState{iface: iface, schedule: model.Schedule{"TS-001": {16}}, prev: prev})
	require.NoError(t, err)
	assert.InDelta(t, 16, v, 1e-9)

	v, err = HardChargingReward(testState{iface: iface, schedule: model.Schedule{"TS-002": {3}}, prev: prev})
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestLookup(t *testing.T) {
	named, err := Lookup([]string{"soft_charging_reward", "evse_violation"})
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "soft_charging_reward", named[0].Name)

	_, err = Lookup([]string{"nope"})
	assert.Error(t, err)
	assert.Len(t, Default(), 4)
	assert.Contains(t, Names(), "hard_charging_reward")
}
