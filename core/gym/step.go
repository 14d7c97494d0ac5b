package gym

import (
	"github.com/caltech-netlab/gym-acnportal/core/logger"
	"github.com/caltech-netlab/gym-acnportal/core/model"
)

// TrainingInterface implements Training. It lets an agent step the engine one
// decision epoch at a time.
type TrainingInterface struct {
	*TrainedInterface
}

var _ Training = (*TrainingInterface)(nil)

// NewTrainingInterface wraps engine for training.
func NewTrainingInterface(engine Engine, log logger.Logger) *TrainingInterface {
	return &TrainingInterface{TrainedInterface: NewTrainedInterface(engine, log)}
}

// FromTrained returns a TrainingInterface sharing the engine of t.
func FromTrained(t *TrainedInterface) *TrainingInterface {
	return &TrainingInterface{TrainedInterface: t}
}

// Step validates schedule and advances the engine until it needs a new
// schedule. It returns whether the simulation is complete and whether the
// schedule was feasible.
//
// When forceFeasibility is set and the schedule is infeasible the engine is
// not stepped: the returned done flag is the current state of the event
// queue and the caller is expected to retry with a corrected schedule.
func (i *TrainingInterface) Step(schedule model.Schedule, forceFeasibility bool) (bool, bool, error) {
	maxRecompute := i.engine.MaxRecompute()
	if len(schedule) == 0 || maxRecompute <= 0 || schedule.MinLength() < maxRecompute {
		i.log.Warnf("length of schedules is less than max_recompute %d, pilots may be updated with zeros", maxRecompute)
	}

	feasible, err := i.IsFeasible(schedule, model.FeasibilityOptions{})
	if err != nil {
		return false, false, err
	}
	if forceFeasibility && !feasible {
		i.log.Warnf("infeasible schedule passed with force_feasibility set, simulation will not progress")
		return i.engine.EventQueue().Empty(), false, nil
	}
	return i.engine.Step(schedule), feasible, nil
}
