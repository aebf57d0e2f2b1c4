// Package runner orchestrates a load test run end to end: setup, the staged
// load ramp, final evaluation, and the run verdict.
package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsr-ph/dsr-loadtest/internal/executor"
	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/internal/report"
	"github.com/dsr-ph/dsr-loadtest/internal/scenario"
	"github.com/dsr-ph/dsr-loadtest/internal/threshold"
	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

// State is the orchestrator lifecycle state
type State string

const (
	StateSetup       State = "SETUP"
	StateFailedSetup State = "FAILED_SETUP"
	StateRamping     State = "RAMPING"
	StateSustained   State = "SUSTAINED"
	StateCooldown    State = "COOLDOWN"
	StateEvaluating  State = "EVALUATING"
	StateDone        State = "DONE"
)

// Authenticator performs the setup-phase handshake against the target and
// returns a bearer token.
type Authenticator func(ctx context.Context, target config.TargetConfig) (string, error)

// StateObserver is notified of lifecycle transitions. The status API's
// telemetry implements it; tests use it to watch the run.
type StateObserver interface {
	SetState(state string)
}

// Runner drives one complete run. Construct with New; a Runner is single-use.
type Runner struct {
	cfg    *config.Config
	logger *logging.Logger

	rules    []threshold.Rule
	schedule *executor.Schedule
	registry *scenario.Registry
	tokens   *scenario.TokenSource

	authenticator Authenticator
	teardown      func(ctx context.Context)
	observer      executor.Observer
	stateObserver StateObserver
	scenarios     []scenario.Definition
	runID         string
	seed          int64
}

// Option customizes a Runner
type Option func(*Runner)

// WithScenarios replaces the built-in scenario set
func WithScenarios(defs []scenario.Definition) Option {
	return func(r *Runner) { r.scenarios = defs }
}

// WithRunID pins the run identifier instead of generating one, so external
// telemetry labeled ahead of the run lines up with the report.
func WithRunID(runID string) Option {
	return func(r *Runner) { r.runID = runID }
}

// WithAuthenticator replaces the default setup handshake
func WithAuthenticator(auth Authenticator) Option {
	return func(r *Runner) { r.authenticator = auth }
}

// WithTeardown registers a hook that runs after the load phase, whether the
// run passed, failed, or was canceled.
func WithTeardown(teardown func(ctx context.Context)) Option {
	return func(r *Runner) { r.teardown = teardown }
}

// WithObserver attaches a pool observer, typically the status API telemetry
func WithObserver(observer executor.Observer) Option {
	return func(r *Runner) {
		r.observer = observer
		if so, ok := observer.(StateObserver); ok {
			r.stateObserver = so
		}
	}
}

// New validates configuration and builds a Runner. Malformed thresholds and
// stages are rejected here, before any load is generated.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Runner, error) {
	rules, err := threshold.ParseAll(cfg.Load.Thresholds)
	if err != nil {
		return nil, err
	}

	schedule, err := executor.NewSchedule(cfg.Load.Stages)
	if err != nil {
		return nil, err
	}

	// Seed 0 means "not pinned"; picking one here keeps the whole run
	// reproducible from the logged value.
	seed := cfg.Load.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Runner{
		cfg:           cfg,
		logger:        logger,
		rules:         rules,
		schedule:      schedule,
		tokens:        &scenario.TokenSource{},
		authenticator: scenario.Authenticate,
		observer:      executor.NopObserver{},
		seed:          seed,
	}

	for _, opt := range opts {
		opt(r)
	}

	defs := r.scenarios
	if defs == nil {
		client := scenario.NewClient(cfg.Target, r.tokens)
		defs = scenario.Builtin(client, cfg.Load.ScenarioWeights)
	}
	registry, err := scenario.NewRegistry(defs)
	if err != nil {
		return nil, err
	}
	r.registry = registry

	return r, nil
}

// Run executes the run to completion and returns its result. Context
// cancellation is the graceful stop path: virtual users drain and the
// thresholds are still evaluated over whatever was collected.
func (r *Runner) Run(ctx context.Context) report.RunResult {
	runID := r.runID
	if runID == "" {
		runID = logging.NewRunID()
	}
	ctx = logging.WithRunID(ctx, runID)
	startedAt := time.Now()

	r.setState(ctx, StateSetup, nil)

	if r.teardown != nil {
		defer r.teardown(context.WithoutCancel(ctx))
	}

	if err := r.setup(ctx); err != nil {
		r.logger.LogError(ctx, err, "setup failed, no load generated", nil)
		r.setState(ctx, StateFailedSetup, nil)
		return report.RunResult{
			RunID:       runID,
			Target:      r.cfg.Target.BaseURL,
			State:       string(StateFailedSetup),
			StartedAt:   startedAt,
			WallClock:   time.Since(startedAt),
			Snapshot:    loadmetrics.NewStore().Snapshot(),
			OverallPass: false,
		}
	}

	r.logger.Info("load phase starting", "seed", r.seed)

	store := loadmetrics.NewStore()
	dispatcher := scenario.NewDispatcher(r.registry, r.seed)
	pool := executor.NewPool(store, dispatcher, r.logger, r.observer, executor.PoolConfig{
		ThinkTimeMin: r.cfg.Load.ThinkTimeMin,
		ThinkTimeMax: r.cfg.Load.ThinkTimeMax,
		Seed:         r.seed,
	})
	scheduler := executor.NewScheduler(r.schedule, pool, r.cfg.Load.TickInterval, r.observer, r.logger)

	phase := StateSetup
	prevDesired := 0
	scheduler.Run(ctx, func(elapsed time.Duration, desired int) {
		next := phaseFor(prevDesired, desired, phase)
		if next != phase {
			phase = next
			r.setState(ctx, phase, logrus.Fields{
				"elapsed": elapsed.String(),
				"desired": desired,
			})
		}
		prevDesired = desired
	})

	r.setState(ctx, StateEvaluating, nil)

	snap := store.Snapshot()
	thresholdResults := threshold.Evaluate(r.rules, snap)
	sanityResults := r.sanityChecks(snap, pool.Peak())
	overall := threshold.AllPassed(thresholdResults) && threshold.AllPassed(sanityResults)

	r.setState(ctx, StateDone, logrus.Fields{"overall_pass": overall})

	return report.RunResult{
		RunID:           runID,
		Target:          r.cfg.Target.BaseURL,
		State:           string(StateDone),
		StartedAt:       startedAt,
		WallClock:       time.Since(startedAt),
		PeakConcurrency: pool.Peak(),
		Snapshot:        snap,
		Thresholds:      thresholdResults,
		SanityChecks:    sanityResults,
		OverallPass:     overall,
	}
}

// setup performs the auth handshake when the target requires credentials
func (r *Runner) setup(ctx context.Context) error {
	if r.cfg.Target.ClientID == "" {
		r.logger.Info("no client credentials configured, skipping auth handshake")
		return nil
	}

	token, err := r.authenticator(ctx, r.cfg.Target)
	if err != nil {
		return err
	}
	if token == "" {
		return errors.NewSetupError("auth handshake returned an empty token")
	}

	r.tokens.Set(token)
	r.logger.Info("auth handshake complete")
	return nil
}

// sanityChecks guards against a vacuous pass: a run that barely executed
// anything must not report success just because no threshold tripped.
func (r *Runner) sanityChecks(snap loadmetrics.Snapshot, peak int) []threshold.Result {
	var results []threshold.Result

	if min := r.cfg.Load.MinTotalRequests; min > 0 {
		rule := threshold.Rule{
			Metric:     loadmetrics.MetricRequests,
			Comparator: threshold.ComparatorGTE,
			Limit:      float64(min),
		}
		results = append(results, threshold.Evaluate([]threshold.Rule{rule}, snap)...)
	}

	if min := r.cfg.Load.MinPeakVUs; min > 0 {
		rule := threshold.Rule{
			Metric:     "peak_concurrency",
			Comparator: threshold.ComparatorGTE,
			Limit:      float64(min),
		}
		results = append(results, threshold.Result{
			Rule:   rule,
			Passed: peak >= min,
			Actual: float64(peak),
		})
	}

	return results
}

func (r *Runner) setState(ctx context.Context, state State, fields logrus.Fields) {
	if r.stateObserver != nil {
		r.stateObserver.SetState(string(state))
	}
	r.logger.LogRunEvent(ctx, "state transition", string(state), fields)
}

// phaseFor maps the desired concurrency slope onto the lifecycle phase
func phaseFor(prev, desired int, current State) State {
	switch {
	case desired > prev:
		return StateRamping
	case desired < prev:
		return StateCooldown
	case current == StateSetup:
		return StateRamping
	default:
		return StateSustained
	}
}

// ExitCode maps the run verdict to the process exit code
func ExitCode(result report.RunResult) int {
	if result.OverallPass {
		return 0
	}
	return 1
}
