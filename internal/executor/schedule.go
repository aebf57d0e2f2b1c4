// Package executor contains the stage schedule, the virtual user pool, and
// the tick loop that keeps the pool tracking the schedule.
package executor

import (
	"math"
	"time"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// Schedule computes the desired concurrency at any elapsed time from an
// ordered stage list, by piecewise-linear interpolation between the previous
// stage's end target and the current stage's target.
type Schedule struct {
	stages []config.Stage
	total  time.Duration
}

// NewSchedule validates the stage list and builds a schedule
func NewSchedule(stages []config.Stage) (*Schedule, error) {
	if len(stages) == 0 {
		return nil, errors.NewConfigurationError("stage list is empty")
	}

	var total time.Duration
	for _, stage := range stages {
		if stage.Duration < 0 {
			return nil, errors.NewConfigurationError("stage durations must be non-negative")
		}
		if stage.Target < 0 {
			return nil, errors.NewConfigurationError("stage targets must be non-negative")
		}
		total += stage.Duration
	}

	return &Schedule{
		stages: append([]config.Stage(nil), stages...),
		total:  total,
	}, nil
}

// Total returns the sum of all stage durations
func (s *Schedule) Total() time.Duration {
	return s.total
}

// DesiredAt returns the desired concurrency at the given elapsed time. The
// ramp starts from 0, reaches each stage's target exactly at that stage's end
// timestamp, and is 0 once elapsed exceeds the total duration. A
// zero-duration stage is a step, not an interpolation.
func (s *Schedule) DesiredAt(elapsed time.Duration) int {
	if elapsed < 0 || elapsed > s.total {
		return 0
	}

	prev := 0
	var start time.Duration
	for _, stage := range s.stages {
		end := start + stage.Duration
		if stage.Duration > 0 && elapsed < end {
			frac := float64(elapsed-start) / float64(stage.Duration)
			return int(math.Round(float64(prev) + frac*float64(stage.Target-prev)))
		}
		prev = stage.Target
		start = end
	}

	// elapsed == total
	return prev
}
