package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
)

// InfluxSink writes environment steps to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

var _ coremetrics.EpisodeRecorder = (*InfluxSink)(nil)

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes the step as an env_step point. Reward components are
// written as reward_<name> fields.
func (s *InfluxSink) RecordStep(ev coremetrics.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("env_step").
		AddTag("episode_id", ev.EpisodeID).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddTag("component", "gym_env").
		AddField("step", ev.Step).
		AddField("iteration", ev.Iteration).
		AddField("reward", round3(ev.Reward)).
		AddField("charging_rate", round3(ev.ChargingRate)).
		AddField("active_stations", ev.ActiveStations).
		AddField("done", ev.Done)
	names := make([]string, 0, len(ev.Rewards))
	for name := range ev.Rewards {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p = p.AddField("reward_"+name, round3(ev.Rewards[name]))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEpisode writes the summary as an env_episode point.
func (s *InfluxSink) RecordEpisode(sum coremetrics.EpisodeSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("env_episode").
		AddTag("episode_id", sum.EpisodeID).
		AddTag("stalled", strconv.FormatBool(sum.Stalled)).
		AddField("steps", sum.Steps).
		AddField("iterations", sum.Iterations).
		AddField("total_reward", round3(sum.TotalReward)).
		AddField("infeasible_steps", sum.InfeasibleSteps).
		AddField("energy_delivered_kwh", round3(sum.EnergyDelivered)).
		AddField("energy_requested_kwh", round3(sum.EnergyRequested)).
		AddField("duration_ms", sum.Duration.Milliseconds()).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client resources.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
