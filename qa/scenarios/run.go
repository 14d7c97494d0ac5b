package scenarios

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/caltech-netlab/gym-acnportal/core/env"
	"github.com/caltech-netlab/gym-acnportal/core/policy"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
	"github.com/caltech-netlab/gym-acnportal/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	cfg, err := sc.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	e, err := env.New(cfg.EngineFactory(logger.NopLogger{}), cfg.Env, logger.NopLogger{})
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	e.SetMetricsSink(sink)
	p, err := policy.New(sc.Policy, nil)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	sum, err := env.Run(context.Background(), e, p, 0, cfg.Simulation.StallLimit)
	if err != nil && !errors.Is(err, env.ErrStalled) {
		t.Fatalf("run: %v", err)
	}

	exp := sc.Expected
	if sum.Stalled != exp.Stalled {
		t.Errorf("scenario %s expected stalled=%t", sc.Name, exp.Stalled)
	}
	if sum.Steps != exp.Steps {
		t.Errorf("scenario %s expected %d steps, got %d", sc.Name, exp.Steps, sum.Steps)
	}
	if sum.Iterations != exp.Iterations {
		t.Errorf("scenario %s expected %d iterations, got %d", sc.Name, exp.Iterations, sum.Iterations)
	}
	if sum.InfeasibleSteps != exp.InfeasibleSteps {
		t.Errorf("scenario %s expected %d infeasible steps, got %d", sc.Name, exp.InfeasibleSteps, sum.InfeasibleSteps)
	}
	if math.Abs(sum.EnergyDelivered-exp.EnergyKWh) > 1e-3 {
		t.Errorf("scenario %s expected %.3f kWh, got %.3f", sc.Name, exp.EnergyKWh, sum.EnergyDelivered)
	}

	expected := fmt.Sprintf(`
# HELP gym_env_episodes_total Total number of finished episodes
# TYPE gym_env_episodes_total counter
gym_env_episodes_total{stalled="%t"} 1
`, exp.Stalled)
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "gym_env_episodes_total"); err != nil {
		t.Errorf("scenario %s episode metrics: %v", sc.Name, err)
	}
}
