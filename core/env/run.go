package env

import (
	"context"
	"errors"
	"fmt"

	"github.com/caltech-netlab/gym-acnportal/core/metrics"
	"github.com/caltech-netlab/gym-acnportal/core/policy"
)

// ErrStalled is returned by Run when forced feasibility keeps rejecting the
// policy's schedules.
var ErrStalled = errors.New("episode stalled on infeasible schedules")

// Run resets e and drives one episode with p. maxSteps <= 0 runs until the
// simulation is done. stallLimit <= 0 disables stall detection. The episode
// summary is returned even when an error interrupts the run.
func Run(ctx context.Context, e *SimEnv, p policy.Policy, maxSteps, stallLimit int) (metrics.EpisodeSummary, error) {
	if _, err := e.Reset(); err != nil {
		return metrics.EpisodeSummary{}, fmt.Errorf("reset: %w", err)
	}
	stalled := 0
	for step := 0; maxSteps <= 0 || step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return e.Finish(false), err
		}
		if e.iface.IsDone() {
			break
		}
		action, err := p.Act(e.Interface())
		if err != nil {
			return e.Finish(false), fmt.Errorf("policy %s: %w", p.Name(), err)
		}
		res, err := e.Step(action)
		if err != nil {
			return e.Finish(false), err
		}
		if res.Done {
			break
		}
		if e.cfg.ForceFeasibility && !res.Info.Feasible {
			stalled++
			if stallLimit > 0 && stalled >= stallLimit {
				return e.Finish(true), fmt.Errorf("%d consecutive steps: %w", stalled, ErrStalled)
			}
			continue
		}
		stalled = 0
	}
	return e.Finish(false), nil
}
