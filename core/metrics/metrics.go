package metrics

import "time"

// StepEvent describes one call to the environment's Step.
type StepEvent struct {
	EpisodeID string             `json:"episode_id"`
	Step      int                `json:"step"`
	Iteration int                `json:"iteration"`
	Reward    float64            `json:"reward"`
	Rewards   map[string]float64 `json:"rewards,omitempty"`
	Feasible  bool               `json:"feasible"`
	Done      bool               `json:"done"`
	// ChargingRate is the total current (A) delivered during the last
	// period.
	ChargingRate   float64   `json:"charging_rate"`
	ActiveStations int       `json:"active_stations"`
	Time           time.Time `json:"time"`
}

// MetricsSink records step events for observability purposes.
type MetricsSink interface {
	RecordStep(ev StepEvent) error
}

// EpisodeSummary aggregates a finished episode.
type EpisodeSummary struct {
	EpisodeID       string        `json:"episode_id"`
	Steps           int           `json:"steps"`
	Iterations      int           `json:"iterations"`
	TotalReward     float64       `json:"total_reward"`
	InfeasibleSteps int           `json:"infeasible_steps"`
	EnergyDelivered float64       `json:"energy_delivered_kwh"`
	EnergyRequested float64       `json:"energy_requested_kwh"`
	Stalled         bool          `json:"stalled"`
	Duration        time.Duration `json:"duration"`
	Time            time.Time     `json:"time"`
}

// EpisodeRecorder is implemented by sinks able to record episode summaries.
type EpisodeRecorder interface {
	RecordEpisode(s EpisodeSummary) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error         { return nil }
func (NopSink) RecordEpisode(EpisodeSummary) error { return nil }

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordStep(ev StepEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordEpisode forwards the summary to the sinks supporting it.
func (m *MultiSink) RecordEpisode(sum EpisodeSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EpisodeRecorder); ok {
			if err := rec.RecordEpisode(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding a connection.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
