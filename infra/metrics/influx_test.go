package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/caltech-netlab/gym-acnportal/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordStep(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.StepEvent{
		EpisodeID:      "ep1",
		Step:           3,
		Iteration:      12,
		Reward:         -1.23456,
		Rewards:        map[string]float64{"soft_charging": 2, "evse_violation": -3.23456},
		Feasible:       true,
		ChargingRate:   48,
		ActiveStations: 2,
		Time:           now,
	}
	if err := sink.RecordStep(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("env_step").
		AddTag("episode_id", "ep1").
		AddTag("feasible", "true").
		AddTag("component", "gym_env").
		AddField("step", 3).
		AddField("iteration", 12).
		AddField("reward", -1.235).
		AddField("charging_rate", 48.0).
		AddField("active_stations", 2).
		AddField("done", false).
		AddField("reward_evse_violation", -3.235).
		AddField("reward_soft_charging", 2.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(rec.bodies) != 1 || rec.bodies[0] != expected {
		t.Errorf("unexpected body: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordEpisode(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	sum := coremetrics.EpisodeSummary{
		EpisodeID:       "ep1",
		Steps:           10,
		Iterations:      40,
		TotalReward:     12.5,
		InfeasibleSteps: 1,
		EnergyDelivered: 4.2,
		EnergyRequested: 6,
		Duration:        1500 * time.Millisecond,
		Time:            now,
	}
	if err := sink.RecordEpisode(sum); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("env_episode").
		AddTag("episode_id", "ep1").
		AddTag("stalled", "false").
		AddField("steps", 10).
		AddField("iterations", 40).
		AddField("total_reward", 12.5).
		AddField("infeasible_steps", 1).
		AddField("energy_delivered_kwh", 4.2).
		AddField("energy_requested_kwh", 6.0).
		AddField("duration_ms", int64(1500)).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(rec.bodies) != 1 || rec.bodies[0] != exp {
		t.Errorf("bodies: %#v", rec.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
