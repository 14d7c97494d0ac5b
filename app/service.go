// Package app wires configuration, environment and observability into a
// runnable training service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/config"
	"github.com/caltech-netlab/gym-acnportal/core/env"
	coremetrics "github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/policy"
	"github.com/caltech-netlab/gym-acnportal/core/steplog"
	"github.com/caltech-netlab/gym-acnportal/infra/logger"
	"github.com/caltech-netlab/gym-acnportal/infra/metrics"
	"github.com/caltech-netlab/gym-acnportal/internal/eventbus"
)

// Service drives episodes of a configured environment.
type Service struct {
	Env *env.SimEnv
	Bus *eventbus.TypedBus[coremetrics.StepEvent]

	sink       coremetrics.MetricsSink
	store      steplog.Store
	log        logger.Logger
	promAddr   string
	maxSteps   int
	stallLimit int
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	var store steplog.Store = steplog.NopStore{}
	if cfg.StepLog.Enabled() {
		if store, err = steplog.NewJSONLStore(cfg.StepLog.Path); err != nil {
			return nil, fmt.Errorf("step log: %w", err)
		}
	}
	e, err := env.New(cfg.EngineFactory(logger.New("simulator")), cfg.Env, logger.New("env"))
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	bus := eventbus.NewTyped[coremetrics.StepEvent]()
	e.SetMetricsSink(sink)
	e.SetStepLog(store)
	e.SetEventBus(bus)
	return &Service{
		Env:        e,
		Bus:        bus,
		sink:       sink,
		store:      store,
		log:        logg,
		promAddr:   cfg.Metrics.PrometheusAddr,
		maxSteps:   cfg.Simulation.MaxSteps,
		stallLimit: cfg.Simulation.StallLimit,
	}, nil
}

// SetPrometheusAddr overrides the address /metrics is served on. An empty
// address disables the endpoint.
func (s *Service) SetPrometheusAddr(addr string) { s.promAddr = addr }

// Run drives episodes with p. A stalled episode is logged and the next one
// starts; any other error stops the run.
func (s *Service) Run(ctx context.Context, p policy.Policy, episodes int) ([]coremetrics.EpisodeSummary, error) {
	if s.promAddr != "" {
		promCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartPromServer(promCtx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	out := make([]coremetrics.EpisodeSummary, 0, episodes)
	for i := 0; i < episodes; i++ {
		sum, err := env.Run(ctx, s.Env, p, s.maxSteps, s.stallLimit)
		if err != nil && !errors.Is(err, env.ErrStalled) {
			return out, fmt.Errorf("episode %d: %w", i, err)
		}
		if err != nil {
			s.log.Warnf("episode %s: %v", sum.EpisodeID, err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Bus.Close()
	var errs []error
	if c, ok := s.sink.(coremetrics.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
