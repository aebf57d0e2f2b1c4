package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// RenderJSON renders the machine-readable artifact. Map keys are emitted in
// sorted order, so identical results produce identical bytes.
func RenderJSON(result RunResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError("failed to encode run result").WithCause(err)
	}
	return append(data, '\n'), nil
}

// RenderText renders the operator-facing console summary
func RenderText(result RunResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Load Test Report\n")
	fmt.Fprintf(&b, "================\n\n")
	fmt.Fprintf(&b, "Run ID:           %s\n", result.RunID)
	fmt.Fprintf(&b, "Target:           %s\n", result.Target)
	fmt.Fprintf(&b, "Final state:      %s\n", result.State)
	fmt.Fprintf(&b, "Started:          %s\n", result.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Wall clock:       %s\n", result.WallClock.Round(time.Millisecond))
	fmt.Fprintf(&b, "Peak concurrency: %d\n", result.PeakConcurrency)
	fmt.Fprintf(&b, "Verdict:          %s\n", result.Verdict())

	fmt.Fprintf(&b, "\nCounters\n--------\n")
	for _, name := range sortedKeys(result.Snapshot.Counters) {
		c := result.Snapshot.Counters[name]
		fmt.Fprintf(&b, "  %-40s count=%g\n", name, c.Count)
	}

	fmt.Fprintf(&b, "\nRates\n-----\n")
	for _, name := range sortedKeys(result.Snapshot.Rates) {
		r := result.Snapshot.Rates[name]
		fmt.Fprintf(&b, "  %-40s rate=%.4f passes=%d count=%d\n", name, r.Rate, r.Passes, r.Count)
	}

	fmt.Fprintf(&b, "\nTrends\n------\n")
	for _, name := range sortedKeys(result.Snapshot.Trends) {
		t := result.Snapshot.Trends[name]
		fmt.Fprintf(&b, "  %-40s avg=%s min=%s max=%s p50=%s p90=%s p95=%s p99=%s (n=%d)\n",
			name,
			formatMillis(t.Avg), formatMillis(t.Min), formatMillis(t.Max),
			formatMillis(t.P50), formatMillis(t.P90), formatMillis(t.P95), formatMillis(t.P99),
			t.Count,
		)
	}

	fmt.Fprintf(&b, "\nThresholds\n----------\n")
	for _, res := range result.Thresholds {
		fmt.Fprintf(&b, "  %s\n", formatRuleLine(res))
	}

	if len(result.SanityChecks) > 0 {
		fmt.Fprintf(&b, "\nSanity checks\n-------------\n")
		for _, res := range result.SanityChecks {
			fmt.Fprintf(&b, "  %s\n", formatRuleLine(res))
		}
	}

	return []byte(b.String())
}
