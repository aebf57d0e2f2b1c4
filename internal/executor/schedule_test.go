package executor

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
)

func TestNewSchedule_Validation(t *testing.T) {
	_, err := NewSchedule(nil)
	assert.Error(t, err)

	_, err = NewSchedule([]config.Stage{{Duration: time.Second, Target: -1}})
	assert.Error(t, err)

	s, err := NewSchedule([]config.Stage{{Duration: time.Minute, Target: 10}})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.Total())
}

func TestSchedule_DesiredAt_Interpolation(t *testing.T) {
	s, err := NewSchedule([]config.Stage{
		{Duration: 60 * time.Second, Target: 100},
		{Duration: 120 * time.Second, Target: 500},
		{Duration: 30 * time.Second, Target: 0},
	})
	require.NoError(t, err)

	// Ramp from 0 to 100 over the first minute
	assert.Equal(t, 0, s.DesiredAt(0))
	assert.Equal(t, 50, s.DesiredAt(30*time.Second))
	assert.Equal(t, 100, s.DesiredAt(60*time.Second))

	// Ramp from 100 to 500 over the next two minutes
	assert.Equal(t, 300, s.DesiredAt(120*time.Second))
	assert.Equal(t, 500, s.DesiredAt(180*time.Second))

	// Cooldown back to 0
	assert.Equal(t, 250, s.DesiredAt(195*time.Second))
	assert.Equal(t, 0, s.DesiredAt(210*time.Second))

	// Past the end of the run
	assert.Equal(t, 0, s.DesiredAt(211*time.Second))
	assert.Equal(t, 0, s.DesiredAt(time.Hour))
}

func TestSchedule_ZeroDurationStageIsStep(t *testing.T) {
	s, err := NewSchedule([]config.Stage{
		{Duration: 0, Target: 200},
		{Duration: 60 * time.Second, Target: 200},
	})
	require.NoError(t, err)

	assert.Equal(t, 200, s.DesiredAt(0))
	assert.Equal(t, 200, s.DesiredAt(30*time.Second))
	assert.Equal(t, 200, s.DesiredAt(60*time.Second))
}

func TestSchedule_DesiredAt_PropertyRandomStages(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		numStages := 1 + rng.Intn(5)
		stages := make([]config.Stage, numStages)
		for i := range stages {
			stages[i] = config.Stage{
				Duration: time.Duration(1+rng.Intn(300)) * time.Second,
				Target:   rng.Intn(1000),
			}
		}

		s, err := NewSchedule(stages)
		require.NoError(t, err)

		// Probe random points and compare to an independent reference
		for probe := 0; probe < 100; probe++ {
			elapsed := time.Duration(rng.Int63n(int64(s.Total()) + 1))
			assert.Equal(t, referenceDesired(stages, elapsed), s.DesiredAt(elapsed),
				"trial=%d stages=%v elapsed=%v", trial, stages, elapsed)
		}
	}
}

// referenceDesired is an independent oracle for the interpolation contract
func referenceDesired(stages []config.Stage, elapsed time.Duration) int {
	prev := 0.0
	var start time.Duration
	for _, stage := range stages {
		end := start + stage.Duration
		if elapsed < end {
			frac := float64(elapsed-start) / float64(stage.Duration)
			return int(math.Round(prev + frac*(float64(stage.Target)-prev)))
		}
		prev = float64(stage.Target)
		start = end
	}
	return int(prev)
}
