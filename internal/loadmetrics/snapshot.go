package loadmetrics

import "time"

// CounterValue is the aggregated state of a counter metric
type CounterValue struct {
	Count float64 `json:"count"`
}

// RateValue is the aggregated state of a rate metric
type RateValue struct {
	Count  int64   `json:"count"`
	Passes int64   `json:"passes"`
	Rate   float64 `json:"rate"`
}

// TrendValue is the aggregated state of a trend metric. All values are
// milliseconds except Count.
type TrendValue struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Snapshot is an immutable point-in-time copy of a Store
type Snapshot struct {
	TakenAt  time.Time               `json:"taken_at"`
	Counters map[string]CounterValue `json:"counters"`
	Rates    map[string]RateValue    `json:"rates"`
	Trends   map[string]TrendValue   `json:"trends"`
}

// Value resolves a metric field for threshold evaluation. An empty field
// selects the metric's default: count for counters, rate for rates, avg for
// trends. The second return reports whether the metric and field exist.
func (s Snapshot) Value(metric, field string) (float64, bool) {
	if c, ok := s.Counters[metric]; ok {
		switch field {
		case "", "count":
			return c.Count, true
		}
		return 0, false
	}

	if r, ok := s.Rates[metric]; ok {
		switch field {
		case "", "rate":
			return r.Rate, true
		case "count":
			return float64(r.Count), true
		case "passes":
			return float64(r.Passes), true
		}
		return 0, false
	}

	if t, ok := s.Trends[metric]; ok {
		switch field {
		case "", "avg":
			return t.Avg, true
		case "min":
			return t.Min, true
		case "max":
			return t.Max, true
		case "count":
			return float64(t.Count), true
		case "sum":
			return t.Sum, true
		case "p50":
			return t.P50, true
		case "p90":
			return t.P90, true
		case "p95":
			return t.P95, true
		case "p99":
			return t.P99, true
		}
		return 0, false
	}

	return 0, false
}
