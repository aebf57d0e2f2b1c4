package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

func TestParseStages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Stage
		wantErr bool
	}{
		{
			name:  "ramp up, sustain, ramp down",
			input: "60s:100,120s:500,30s:0",
			want: []Stage{
				{Duration: 60 * time.Second, Target: 100},
				{Duration: 120 * time.Second, Target: 500},
				{Duration: 30 * time.Second, Target: 0},
			},
		},
		{
			name:  "single stage with spaces",
			input: " 5m : 50 ",
			want:  []Stage{{Duration: 5 * time.Minute, Target: 50}},
		},
		{
			name:  "zero duration step stage",
			input: "0s:200",
			want:  []Stage{{Duration: 0, Target: 200}},
		},
		{
			name:    "missing target",
			input:   "60s",
			wantErr: true,
		},
		{
			name:    "bad duration",
			input:   "sixty:100",
			wantErr: true,
		},
		{
			name:    "bad target",
			input:   "60s:many",
			wantErr: true,
		},
		{
			name:    "negative target",
			input:   "60s:-5",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := ParseStages(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stages)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// No env vars set beyond what the test runner inherits
	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Target.BaseURL)
	assert.Len(t, cfg.Load.Stages, 3)
	assert.Equal(t, []string{"errors.rate<0.05", "response_time.p95<2000"}, cfg.Load.Thresholds)
	assert.Equal(t, time.Second, cfg.Load.TickInterval)
	assert.LessOrEqual(t, cfg.Load.ThinkTimeMin, cfg.Load.ThinkTimeMax)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOAD_STAGES", "10s:5,20s:10")
	t.Setenv("LOAD_THRESHOLDS", "requests.count>1000")
	t.Setenv("TARGET_BASE_URL", "https://staging.dsr.gov.ph")
	t.Setenv("LOAD_SCENARIO_WEIGHTS", "household_registration:4,grievance_filing:1")
	t.Setenv("STATUS_API_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.dsr.gov.ph", cfg.Target.BaseURL)
	assert.Equal(t, []Stage{
		{Duration: 10 * time.Second, Target: 5},
		{Duration: 20 * time.Second, Target: 10},
	}, cfg.Load.Stages)
	assert.Equal(t, []string{"requests.count>1000"}, cfg.Load.Thresholds)
	assert.Equal(t, 4.0, cfg.Load.ScenarioWeights["household_registration"])
	assert.Equal(t, 1.0, cfg.Load.ScenarioWeights["grievance_filing"])
	assert.True(t, cfg.Status.Enabled)
}

func TestLoad_MalformedStagesFailsFast(t *testing.T) {
	t.Setenv("LOAD_STAGES", "banana")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Target: TargetConfig{
				BaseURL:        "http://localhost:8080",
				RequestTimeout: 10 * time.Second,
			},
			Load: LoadConfig{
				Stages:       []Stage{{Duration: time.Minute, Target: 10}},
				ThinkTimeMin: time.Second,
				ThinkTimeMax: 2 * time.Second,
				TickInterval: time.Second,
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing base url", func(t *testing.T) {
		cfg := base()
		cfg.Target.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("no stages", func(t *testing.T) {
		cfg := base()
		cfg.Load.Stages = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted think time range", func(t *testing.T) {
		cfg := base()
		cfg.Load.ThinkTimeMin = 5 * time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive scenario weight", func(t *testing.T) {
		cfg := base()
		cfg.Load.ScenarioWeights = map[string]float64{"eligibility_check": 0}
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadConfig_TotalDurationAndPeak(t *testing.T) {
	l := LoadConfig{Stages: []Stage{
		{Duration: time.Minute, Target: 100},
		{Duration: 2 * time.Minute, Target: 500},
		{Duration: 30 * time.Second, Target: 0},
	}}

	assert.Equal(t, 3*time.Minute+30*time.Second, l.TotalDuration())
	assert.Equal(t, 500, l.PeakTarget())
}
