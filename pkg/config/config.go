package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// Config holds the full harness configuration. It is constructed once at
// startup and passed down; components never read the environment themselves.
type Config struct {
	Target  TargetConfig  `json:"target"`
	Load    LoadConfig    `json:"load"`
	Output  OutputConfig  `json:"output"`
	Status  StatusConfig  `json:"status"`
	Logging LoggingConfig `json:"logging"`
}

// TargetConfig describes the system under test
type TargetConfig struct {
	BaseURL        string            `json:"base_url"`
	AuthPath       string            `json:"auth_path"`
	ClientID       string            `json:"client_id"`
	ClientSecret   string            `json:"client_secret"`
	Paths          map[string]string `json:"paths"`
	RequestTimeout time.Duration     `json:"request_timeout"`
}

// Stage defines one segment of the load ramp
type Stage struct {
	Duration time.Duration `json:"duration"`
	Target   int           `json:"target"`
}

// LoadConfig contains load-shape configuration
type LoadConfig struct {
	Stages           []Stage            `json:"stages"`
	Thresholds       []string           `json:"thresholds"`
	ScenarioWeights  map[string]float64 `json:"scenario_weights"`
	ThinkTimeMin     time.Duration      `json:"think_time_min"`
	ThinkTimeMax     time.Duration      `json:"think_time_max"`
	TickInterval     time.Duration      `json:"tick_interval"`
	Seed             int64              `json:"seed"`
	MinTotalRequests int64              `json:"min_total_requests"`
	MinPeakVUs       int                `json:"min_peak_vus"`
}

// OutputConfig contains report artifact paths
type OutputConfig struct {
	JSONPath string `json:"json_path"`
	TextPath string `json:"text_path"`
	HTMLPath string `json:"html_path"`
	PDFPath  string `json:"pdf_path"`
}

// StatusConfig contains live status API configuration
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// Service names for the built-in scenario path map.
const (
	ServiceRegistration = "registration"
	ServiceEligibility  = "eligibility"
	ServicePayment      = "payment"
	ServiceGrievance    = "grievance"
	ServiceAnalytics    = "analytics"
)

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	stages, err := ParseStages(getEnvString("LOAD_STAGES", "60s:100,120s:500,30s:0"))
	if err != nil {
		return nil, err
	}

	weights, err := parseWeights(getEnvString("LOAD_SCENARIO_WEIGHTS", ""))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Target: TargetConfig{
			BaseURL:      getEnvString("TARGET_BASE_URL", "http://localhost:8080"),
			AuthPath:     getEnvString("TARGET_AUTH_PATH", "/api/v1/auth/token"),
			ClientID:     getEnvString("TARGET_CLIENT_ID", "loadtest"),
			ClientSecret: getEnvString("TARGET_CLIENT_SECRET", ""),
			Paths: map[string]string{
				ServiceRegistration: getEnvString("TARGET_REGISTRATION_PATH", "/api/v1/registrations"),
				ServiceEligibility:  getEnvString("TARGET_ELIGIBILITY_PATH", "/api/v1/eligibility/check"),
				ServicePayment:      getEnvString("TARGET_PAYMENT_PATH", "/api/v1/payments"),
				ServiceGrievance:    getEnvString("TARGET_GRIEVANCE_PATH", "/api/v1/grievances"),
				ServiceAnalytics:    getEnvString("TARGET_ANALYTICS_PATH", "/api/v1/analytics/dashboard"),
			},
			RequestTimeout: getEnvDuration("TARGET_REQUEST_TIMEOUT", 10*time.Second),
		},
		Load: LoadConfig{
			Stages:           stages,
			Thresholds:       splitList(getEnvString("LOAD_THRESHOLDS", "errors.rate<0.05,response_time.p95<2000")),
			ScenarioWeights:  weights,
			ThinkTimeMin:     getEnvDuration("LOAD_THINK_TIME_MIN", 1*time.Second),
			ThinkTimeMax:     getEnvDuration("LOAD_THINK_TIME_MAX", 3*time.Second),
			TickInterval:     getEnvDuration("LOAD_TICK_INTERVAL", 1*time.Second),
			Seed:             getEnvInt64("LOAD_SEED", 0),
			MinTotalRequests: getEnvInt64("LOAD_MIN_TOTAL_REQUESTS", 100),
			MinPeakVUs:       getEnvInt("LOAD_MIN_PEAK_VUS", 0),
		},
		Output: OutputConfig{
			JSONPath: getEnvString("OUTPUT_JSON_PATH", "results/loadtest-results.json"),
			TextPath: getEnvString("OUTPUT_TEXT_PATH", "results/loadtest-summary.txt"),
			HTMLPath: getEnvString("OUTPUT_HTML_PATH", "results/loadtest-report.html"),
			PDFPath:  getEnvString("OUTPUT_PDF_PATH", ""),
		},
		Status: StatusConfig{
			Enabled: getEnvBool("STATUS_API_ENABLED", false),
			Addr:    getEnvString("STATUS_API_ADDR", ":6565"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return errors.NewConfigurationError("target base URL is required")
	}
	if _, err := url.ParseRequestURI(c.Target.BaseURL); err != nil {
		return errors.NewConfigurationError(fmt.Sprintf("invalid target base URL %q", c.Target.BaseURL)).WithCause(err)
	}
	if c.Target.RequestTimeout <= 0 {
		return errors.NewConfigurationError("request timeout must be positive")
	}

	if len(c.Load.Stages) == 0 {
		return errors.NewConfigurationError("at least one load stage is required")
	}
	for i, stage := range c.Load.Stages {
		if stage.Duration < 0 {
			return errors.NewConfigurationError(fmt.Sprintf("stage %d has negative duration", i))
		}
		if stage.Target < 0 {
			return errors.NewConfigurationError(fmt.Sprintf("stage %d has negative target concurrency", i))
		}
	}

	if c.Load.ThinkTimeMin < 0 || c.Load.ThinkTimeMax < c.Load.ThinkTimeMin {
		return errors.NewConfigurationError("think time range must satisfy 0 <= min <= max")
	}
	if c.Load.TickInterval <= 0 {
		return errors.NewConfigurationError("tick interval must be positive")
	}

	for name, weight := range c.Load.ScenarioWeights {
		if weight <= 0 {
			return errors.NewConfigurationError(fmt.Sprintf("scenario %q has non-positive weight", name))
		}
	}

	return nil
}

// ServicePath resolves the request path for a named service
func (c *TargetConfig) ServicePath(service string) string {
	if path, ok := c.Paths[service]; ok {
		return path
	}
	return "/" + service
}

// TotalDuration returns the sum of all stage durations
func (l *LoadConfig) TotalDuration() time.Duration {
	var total time.Duration
	for _, stage := range l.Stages {
		total += stage.Duration
	}
	return total
}

// PeakTarget returns the highest stage target concurrency
func (l *LoadConfig) PeakTarget() int {
	peak := 0
	for _, stage := range l.Stages {
		if stage.Target > peak {
			peak = stage.Target
		}
	}
	return peak
}

// ParseStages parses a stage list of the form "60s:100,120s:500,30s:0"
// (duration:targetConcurrency pairs).
func ParseStages(s string) ([]Stage, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, errors.NewConfigurationError("empty stage list")
	}

	stages := make([]Stage, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("malformed stage %q, expected duration:target", part))
		}

		duration, err := time.ParseDuration(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("malformed stage duration %q", fields[0])).WithCause(err)
		}
		if duration < 0 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("stage duration %q is negative", fields[0]))
		}

		target, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("malformed stage target %q", fields[1])).WithCause(err)
		}
		if target < 0 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("stage target %q is negative", fields[1]))
		}

		stages = append(stages, Stage{Duration: duration, Target: target})
	}

	return stages, nil
}

// parseWeights parses "household_registration:4,eligibility_check:3" into a
// weight map. An empty string yields nil, meaning built-in defaults apply.
func parseWeights(s string) (map[string]float64, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}

	weights := make(map[string]float64, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("malformed scenario weight %q, expected name:weight", part))
		}

		weight, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("malformed scenario weight %q", fields[1])).WithCause(err)
		}

		weights[strings.TrimSpace(fields[0])] = weight
	}

	return weights, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
