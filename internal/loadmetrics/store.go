package loadmetrics

import (
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
)

// Canonical metric names recorded by every virtual user iteration.
const (
	MetricRequests     = "requests"
	MetricErrors       = "errors"
	MetricResponseTime = "response_time"
)

// Trend values are recorded in milliseconds and tracked internally in
// microseconds at 3 significant digits, which keeps percentile error
// under 1% of the exact sorted-sample value.
const (
	trendMinMicros = 1
	trendMaxMicros = 600_000_000 // 10 minutes
	trendSigFigs   = 3
)

// SampleKind discriminates the metric sample union
type SampleKind int

const (
	KindCounter SampleKind = iota
	KindRate
	KindTrend
)

// Sample is one metric observation produced by an executor
type Sample struct {
	Kind  SampleKind
	Name  string
	Delta float64 // counters
	OK    bool    // rates
	Value float64 // trends, in milliseconds
}

// Store is a run-scoped, concurrency-safe metric registry. Aggregation is
// sharded per metric name: the store-level lock guards only map access, each
// metric carries its own lock for the hot path.
type Store struct {
	mu       sync.RWMutex
	counters map[string]*counter
	rates    map[string]*rate
	trends   map[string]*trend
}

type counter struct {
	mu    sync.Mutex
	total float64
}

type rate struct {
	mu    sync.Mutex
	total int64
	trues int64
}

type trend struct {
	mu    sync.Mutex
	hist  *hdrhistogram.Histogram
	count int64
	sum   float64
	min   float64
	max   float64
}

// NewStore creates an empty metrics store scoped to one run
func NewStore() *Store {
	return &Store{
		counters: make(map[string]*counter),
		rates:    make(map[string]*rate),
		trends:   make(map[string]*trend),
	}
}

// Record records one sample
func (s *Store) Record(sample Sample) {
	switch sample.Kind {
	case KindCounter:
		s.AddCounter(sample.Name, sample.Delta)
	case KindRate:
		s.RecordRate(sample.Name, sample.OK)
	case KindTrend:
		s.RecordTrend(sample.Name, sample.Value)
	}
}

// AddCounter adds delta to the named counter
func (s *Store) AddCounter(name string, delta float64) {
	c := s.counter(name)
	c.mu.Lock()
	c.total += delta
	c.mu.Unlock()
}

// RecordRate records one boolean observation on the named rate
func (s *Store) RecordRate(name string, ok bool) {
	r := s.rate(name)
	r.mu.Lock()
	r.total++
	if ok {
		r.trues++
	}
	r.mu.Unlock()
}

// RecordTrend records one value (milliseconds) on the named trend
func (s *Store) RecordTrend(name string, value float64) {
	t := s.trend(name)

	micros := int64(value * 1000)
	if micros < trendMinMicros {
		micros = trendMinMicros
	}
	if micros > trendMaxMicros {
		micros = trendMaxMicros
	}

	t.mu.Lock()
	t.hist.RecordValue(micros)
	t.count++
	t.sum += value
	if t.count == 1 || value < t.min {
		t.min = value
	}
	if t.count == 1 || value > t.max {
		t.max = value
	}
	t.mu.Unlock()
}

// Snapshot returns an immutable point-in-time copy of all metrics. Producers
// are only blocked per-metric while that metric is copied.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	counters := make(map[string]*counter, len(s.counters))
	for name, c := range s.counters {
		counters[name] = c
	}
	rates := make(map[string]*rate, len(s.rates))
	for name, r := range s.rates {
		rates[name] = r
	}
	trends := make(map[string]*trend, len(s.trends))
	for name, t := range s.trends {
		trends[name] = t
	}
	s.mu.RUnlock()

	snap := Snapshot{
		TakenAt:  time.Now(),
		Counters: make(map[string]CounterValue, len(counters)),
		Rates:    make(map[string]RateValue, len(rates)),
		Trends:   make(map[string]TrendValue, len(trends)),
	}

	for name, c := range counters {
		c.mu.Lock()
		snap.Counters[name] = CounterValue{Count: c.total}
		c.mu.Unlock()
	}

	for name, r := range rates {
		r.mu.Lock()
		v := RateValue{Count: r.total, Passes: r.trues}
		r.mu.Unlock()
		if v.Count > 0 {
			v.Rate = float64(v.Passes) / float64(v.Count)
		}
		snap.Rates[name] = v
	}

	for name, t := range trends {
		t.mu.Lock()
		v := TrendValue{
			Count: t.count,
			Sum:   t.sum,
			Min:   t.min,
			Max:   t.max,
			P50:   float64(t.hist.ValueAtQuantile(50)) / 1000,
			P90:   float64(t.hist.ValueAtQuantile(90)) / 1000,
			P95:   float64(t.hist.ValueAtQuantile(95)) / 1000,
			P99:   float64(t.hist.ValueAtQuantile(99)) / 1000,
		}
		t.mu.Unlock()
		if v.Count > 0 {
			v.Avg = v.Sum / float64(v.Count)
		}
		snap.Trends[name] = v
	}

	return snap
}

func (s *Store) counter(name string) *counter {
	s.mu.RLock()
	c, ok := s.counters[name]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[name]; ok {
		return c
	}
	c = &counter{}
	s.counters[name] = c
	return c
}

func (s *Store) rate(name string) *rate {
	s.mu.RLock()
	r, ok := s.rates[name]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.rates[name]; ok {
		return r
	}
	r = &rate{}
	s.rates[name] = r
	return r
}

func (s *Store) trend(name string) *trend {
	s.mu.RLock()
	t, ok := s.trends[name]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.trends[name]; ok {
		return t
	}
	t = &trend{hist: hdrhistogram.New(trendMinMicros, trendMaxMicros, trendSigFigs)}
	s.trends[name] = t
	return t
}
