// Package statusapi exposes a live view of an in-flight run: a JSON status
// endpoint for dashboards and a Prometheus endpoint for scrapers.
package statusapi

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dsr-ph/dsr-loadtest/internal/scenario"
)

// Telemetry aggregates live run state from pool events. All collectors live
// on a run-scoped registry, never the process-wide default, so concurrent
// runs in one process cannot collide.
type Telemetry struct {
	registry *prometheus.Registry

	liveVUs      prometheus.Gauge
	desiredVUs   prometheus.Gauge
	elapsedSecs  prometheus.Gauge
	iterations   *prometheus.CounterVec
	durationSecs *prometheus.HistogramVec

	mu       sync.RWMutex
	state    string
	elapsed  time.Duration
	desired  int
	live     int
	total    int64
	failures int64
}

// NewTelemetry creates telemetry with its own registry
func NewTelemetry(runID string) *Telemetry {
	registry := prometheus.NewRegistry()

	t := &Telemetry{
		registry: registry,
		state:    "SETUP",
		liveVUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "loadtest_virtual_users_live",
			Help:        "Number of currently running virtual users",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		desiredVUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "loadtest_virtual_users_desired",
			Help:        "Desired concurrency from the stage schedule",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		elapsedSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "loadtest_elapsed_seconds",
			Help:        "Elapsed wall clock time of the run",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "loadtest_iterations_total",
			Help:        "Scenario iterations by scenario and result",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}, []string{"scenario", "result"}),
		durationSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "loadtest_iteration_duration_seconds",
			Help:        "Scenario iteration duration",
			ConstLabels: prometheus.Labels{"run_id": runID},
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"scenario"}),
	}

	registry.MustRegister(t.liveVUs, t.desiredVUs, t.elapsedSecs, t.iterations, t.durationSecs)
	return t
}

// Registry returns the run-scoped Prometheus registry
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// SetState records the orchestrator state for the status endpoint
func (t *Telemetry) SetState(state string) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// OnTick implements executor.Observer
func (t *Telemetry) OnTick(elapsed time.Duration, desired, live int) {
	t.mu.Lock()
	t.elapsed = elapsed
	t.desired = desired
	t.live = live
	t.mu.Unlock()

	t.elapsedSecs.Set(elapsed.Seconds())
	t.desiredVUs.Set(float64(desired))
	t.liveVUs.Set(float64(live))
}

// OnIteration implements executor.Observer
func (t *Telemetry) OnIteration(scenarioName string, outcome scenario.Outcome) {
	result := "success"
	if !outcome.Success {
		result = "failure"
	}

	t.iterations.WithLabelValues(scenarioName, result).Inc()
	t.durationSecs.WithLabelValues(scenarioName).Observe(outcome.Duration.Seconds())

	t.mu.Lock()
	t.total++
	if !outcome.Success {
		t.failures++
	}
	t.mu.Unlock()
}

// StatusSnapshot is the JSON body served by the status endpoint
type StatusSnapshot struct {
	State            string  `json:"state"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	DesiredVUs       int     `json:"desired_vus"`
	LiveVUs          int     `json:"live_vus"`
	Iterations       int64   `json:"iterations"`
	FailedIterations int64   `json:"failed_iterations"`
}

// Status returns the current live view
func (t *Telemetry) Status() StatusSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return StatusSnapshot{
		State:            t.state,
		ElapsedSeconds:   t.elapsed.Seconds(),
		DesiredVUs:       t.desired,
		LiveVUs:          t.live,
		Iterations:       t.total,
		FailedIterations: t.failures,
	}
}
