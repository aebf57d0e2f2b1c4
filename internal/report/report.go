// Package report turns a finished run into its JSON, text, HTML, and PDF
// artifacts. Rendering is pure: the same RunResult always produces the same
// bytes, so artifacts can be diffed across runs.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/internal/threshold"
)

// RunResult is everything the renderers need about a finished run
type RunResult struct {
	RunID           string               `json:"run_id"`
	Target          string               `json:"target"`
	State           string               `json:"state"`
	StartedAt       time.Time            `json:"started_at"`
	WallClock       time.Duration        `json:"wall_clock_ns"`
	PeakConcurrency int                  `json:"peak_concurrency"`
	Snapshot        loadmetrics.Snapshot `json:"metrics"`
	Thresholds      []threshold.Result   `json:"thresholds"`
	SanityChecks    []threshold.Result   `json:"sanity_checks"`
	OverallPass     bool                 `json:"overall_pass"`
}

// Verdict returns the human-readable pass/fail word for the run
func (r RunResult) Verdict() string {
	if r.OverallPass {
		return "PASSED"
	}
	return "FAILED"
}

// FailedRules returns every threshold and sanity result that did not pass,
// threshold rules first, in evaluation order.
func (r RunResult) FailedRules() []threshold.Result {
	var failed []threshold.Result
	for _, res := range r.Thresholds {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	for _, res := range r.SanityChecks {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// sortedKeys returns map keys in lexical order so renderers are stable
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatMillis(ms float64) string {
	return fmt.Sprintf("%.2fms", ms)
}

func formatRuleLine(res threshold.Result) string {
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	if res.Err != "" {
		return fmt.Sprintf("%s  %-40s %s", status, res.Rule.String(), res.Err)
	}
	return fmt.Sprintf("%s  %-40s actual=%g", status, res.Rule.String(), res.Actual)
}
