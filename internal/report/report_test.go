package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/internal/threshold"
	"github.com/dsr-ph/dsr-loadtest/pkg/config"
)

func sampleResult() RunResult {
	store := loadmetrics.NewStore()
	store.AddCounter(loadmetrics.MetricRequests, 120)
	for i := 0; i < 120; i++ {
		store.RecordRate(loadmetrics.MetricErrors, i < 12)
		store.RecordTrend(loadmetrics.MetricResponseTime, float64(100+i))
		store.RecordTrend(loadmetrics.MetricResponseTime+"_eligibility_check", float64(100+i))
	}
	snap := store.Snapshot()
	snap.TakenAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	rules, _ := threshold.ParseAll([]string{"errors.rate<0.05", "response_time.p95<2000"})
	results := threshold.Evaluate(rules, snap)

	sanity, _ := threshold.ParseAll([]string{"requests>=100"})
	sanityResults := threshold.Evaluate(sanity, snap)

	return RunResult{
		RunID:           "3f1c7a1e-0000-4000-8000-000000000042",
		Target:          "https://staging.dsr.gov.ph",
		State:           "DONE",
		StartedAt:       time.Date(2026, 8, 30, 9, 55, 0, 0, time.UTC),
		WallClock:       3*time.Minute + 30*time.Second,
		PeakConcurrency: 500,
		Snapshot:        snap,
		Thresholds:      results,
		SanityChecks:    sanityResults,
		OverallPass:     threshold.AllPassed(results) && threshold.AllPassed(sanityResults),
	}
}

func TestRenderJSON_Deterministic(t *testing.T) {
	result := sampleResult()

	first, err := RenderJSON(result)
	require.NoError(t, err)
	second, err := RenderJSON(result)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "identical results must produce identical bytes")

	var decoded RunResult
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, result.RunID, decoded.RunID)
	assert.Equal(t, result.PeakConcurrency, decoded.PeakConcurrency)
	assert.Len(t, decoded.Thresholds, 2)
}

func TestRenderText_NamesFailedRulesWithActuals(t *testing.T) {
	result := sampleResult()
	text := string(RenderText(result))

	// 10% error rate trips the 5% threshold
	assert.Contains(t, text, "FAIL")
	assert.Contains(t, text, "errors.rate<0.05")
	assert.Contains(t, text, "actual=0.1")
	assert.Contains(t, text, "Verdict:          FAILED")
	assert.Contains(t, text, "Peak concurrency: 500")
	assert.Contains(t, text, "response_time_eligibility_check")
}

func TestRenderText_Deterministic(t *testing.T) {
	result := sampleResult()
	assert.Equal(t, RenderText(result), RenderText(result))
}

func TestRenderHTML(t *testing.T) {
	result := sampleResult()

	html, err := RenderHTML(result)
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, result.RunID)
	assert.Contains(t, s, "errors.rate&lt;0.05")
	assert.Contains(t, s, `class="fail"`)
	assert.Contains(t, s, "response_time_eligibility_check")

	again, err := RenderHTML(result)
	require.NoError(t, err)
	assert.Equal(t, html, again)
}

func TestRenderPDF(t *testing.T) {
	result := sampleResult()

	pdf, err := RenderPDF(result)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	again, err := RenderPDF(result)
	require.NoError(t, err)
	assert.Equal(t, pdf, again)
}

func TestFailedRules(t *testing.T) {
	result := sampleResult()

	failed := result.FailedRules()
	require.Len(t, failed, 1)
	assert.Equal(t, "errors", failed[0].Rule.Metric)
	assert.InDelta(t, 0.1, failed[0].Actual, 0.001)
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	out := config.OutputConfig{
		JSONPath: filepath.Join(dir, "nested", "report.json"),
		TextPath: filepath.Join(dir, "report.txt"),
		HTMLPath: filepath.Join(dir, "report.html"),
	}

	err := WriteArtifacts(sampleResult(), out, nil)
	require.NoError(t, err)

	for _, path := range []string{out.JSONPath, out.TextPath, out.HTMLPath} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestWriteArtifacts_SurfacesWriteError(t *testing.T) {
	out := config.OutputConfig{
		JSONPath: filepath.Join(string(os.PathSeparator), "dev", "null", "impossible", "report.json"),
	}

	err := WriteArtifacts(sampleResult(), out, nil)
	assert.Error(t, err)
}
