package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/internal/scenario"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

// Observer receives pool lifecycle events. Implementations must be safe for
// concurrent use from multiple virtual users.
type Observer interface {
	OnTick(elapsed time.Duration, desired, live int)
	OnIteration(scenarioName string, outcome scenario.Outcome)
}

// NopObserver discards all events
type NopObserver struct{}

func (NopObserver) OnTick(time.Duration, int, int) {}

func (NopObserver) OnIteration(string, scenario.Outcome) {}

// PoolConfig contains virtual user pacing configuration
type PoolConfig struct {
	ThinkTimeMin time.Duration
	ThinkTimeMax time.Duration
	Seed         int64
}

// Pool spawns and retires virtual users to track the schedule's desired
// concurrency. Pool size is mutated only by the scheduler's tick loop; the
// lock protects against Live/Peak readers, not concurrent resizers.
type Pool struct {
	store      *loadmetrics.Store
	dispatcher *scenario.Dispatcher
	logger     *logging.Logger
	observer   Observer
	cfg        PoolConfig

	mu     sync.Mutex
	vus    map[int]*virtualUser
	nextID int
	peak   int
	wg     sync.WaitGroup
}

type virtualUser struct {
	id   int
	stop chan struct{}
	rng  *rand.Rand
}

// NewPool creates an empty pool
func NewPool(store *loadmetrics.Store, dispatcher *scenario.Dispatcher, logger *logging.Logger, observer Observer, cfg PoolConfig) *Pool {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Pool{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		observer:   observer,
		cfg:        cfg,
		vus:        make(map[int]*virtualUser),
	}
}

// Resize adjusts the pool toward the desired concurrency. Excess virtual
// users are signaled to exit after their current iteration; they are never
// killed mid-request, so truncated requests cannot skew duration metrics.
func (p *Pool) Resize(ctx context.Context, desired int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := len(p.vus)

	for live < desired {
		vu := &virtualUser{
			id:   p.nextID,
			stop: make(chan struct{}),
			rng:  rand.New(rand.NewSource(p.cfg.Seed + int64(p.nextID))),
		}
		p.nextID++
		p.vus[vu.id] = vu
		p.wg.Add(1)
		go p.run(ctx, vu)
		live++
	}

	for id, vu := range p.vus {
		if live <= desired {
			break
		}
		close(vu.stop)
		delete(p.vus, id)
		live--
	}

	if live > p.peak {
		p.peak = live
	}
}

// Live returns the current number of active virtual users
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.vus)
}

// Peak returns the highest concurrency the pool actually reached
func (p *Pool) Peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}

// Drain signals every virtual user to stop and waits for in-flight
// iterations to finish.
func (p *Pool) Drain() {
	p.mu.Lock()
	for id, vu := range p.vus {
		close(vu.stop)
		delete(p.vus, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// run is the virtual user loop: dispatch, execute, record, think, repeat.
func (p *Pool) run(ctx context.Context, vu *virtualUser) {
	defer p.wg.Done()

	vuCtx := logging.WithVirtualUserID(ctx, vu.id)

	for iteration := int64(0); ; iteration++ {
		select {
		case <-ctx.Done():
			return
		case <-vu.stop:
			return
		default:
		}

		def := p.dispatcher.Pick(vu.id, iteration)
		outcome := p.execute(vuCtx, def)

		p.record(def.Name, outcome)
		p.observer.OnIteration(def.Name, outcome)
		p.logger.LogScenarioEvent(vuCtx, def.Name, outcome.Success, outcome.Duration, logrus.Fields{
			"status_code": outcome.StatusCode,
			"iteration":   iteration,
		})

		select {
		case <-ctx.Done():
			return
		case <-vu.stop:
			return
		case <-time.After(p.thinkTime(vu.rng)):
		}
	}
}

// execute runs one scenario iteration. Errors and panics are absorbed into a
// failed outcome; the loop must survive arbitrarily high failure rates.
func (p *Pool) execute(ctx context.Context, def scenario.Definition) (outcome scenario.Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.logger.LogPanic(ctx, r, "scenario panic recovered")
			outcome = scenario.Outcome{
				Success:   false,
				Duration:  time.Since(start),
				ErrorKind: scenario.ErrorKindAssertion,
			}
		}
	}()

	result, err := def.Execute(ctx)
	if err != nil {
		scErr := errors.NewScenarioError(def.Name, "iteration returned error").WithCause(err)
		p.logger.WithContext(ctx).WithError(scErr).Debug("scenario iteration failed")
		return scenario.Outcome{
			Success:   false,
			Duration:  time.Since(start),
			ErrorKind: scenario.ErrorKindAssertion,
		}
	}

	return result
}

func (p *Pool) record(name string, outcome scenario.Outcome) {
	millis := float64(outcome.Duration) / float64(time.Millisecond)

	p.store.AddCounter(loadmetrics.MetricRequests, 1)
	p.store.RecordRate(loadmetrics.MetricErrors, !outcome.Success)
	p.store.RecordTrend(loadmetrics.MetricResponseTime, millis)
	p.store.RecordTrend(loadmetrics.MetricResponseTime+"_"+name, millis)
}

func (p *Pool) thinkTime(rng *rand.Rand) time.Duration {
	min, max := p.cfg.ThinkTimeMin, p.cfg.ThinkTimeMax
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}
