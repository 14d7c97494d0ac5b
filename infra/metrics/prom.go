package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/caltech-netlab/gym-acnportal/core/metrics"
)

// PromSink records environment steps and episodes in Prometheus metrics.
type PromSink struct {
	steps         *prometheus.CounterVec
	reward        prometheus.Histogram
	chargingRate  prometheus.Gauge
	active        prometheus.Gauge
	episodes      *prometheus.CounterVec
	episodeEnergy prometheus.Histogram
}

var _ coremetrics.EpisodeRecorder = (*PromSink)(nil)

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	steps, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gym_env_steps_total",
		Help: "Total number of environment steps",
	}, []string{"feasible"}))
	if err != nil {
		return nil, err
	}
	reward, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gym_env_step_reward",
		Help:    "Reward returned by each environment step",
		Buckets: []float64{-1000, -100, -10, -1, 0, 1, 10, 100, 1000},
	}))
	if err != nil {
		return nil, err
	}
	rate, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gym_env_charging_rate_amps",
		Help: "Total current delivered during the last period",
	}))
	if err != nil {
		return nil, err
	}
	active, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gym_env_active_stations",
		Help: "Number of stations with an EV still charging",
	}))
	if err != nil {
		return nil, err
	}
	episodes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gym_env_episodes_total",
		Help: "Total number of finished episodes",
	}, []string{"stalled"}))
	if err != nil {
		return nil, err
	}
	energy, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gym_env_episode_energy_kwh",
		Help:    "Energy delivered per episode",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		steps:         steps,
		reward:        reward,
		chargingRate:  rate,
		active:        active,
		episodes:      episodes,
		episodeEnergy: energy,
	}, nil
}

// register adds c to reg, returning the already registered collector when
// another sink registered the same metric first.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// RecordStep updates the step counters and gauges.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	s.steps.WithLabelValues(strconv.FormatBool(ev.Feasible)).Inc()
	s.reward.Observe(ev.Reward)
	s.chargingRate.Set(ev.ChargingRate)
	s.active.Set(float64(ev.ActiveStations))
	return nil
}

// RecordEpisode counts the episode and observes its delivered energy.
func (s *PromSink) RecordEpisode(sum coremetrics.EpisodeSummary) error {
	s.episodes.WithLabelValues(strconv.FormatBool(sum.Stalled)).Inc()
	s.episodeEnergy.Observe(sum.EnergyDelivered)
	return nil
}
