package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	apperrors "github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    Rule
		wantErr bool
	}{
		{
			name: "rate with field",
			expr: "errors.rate<0.05",
			want: Rule{Metric: "errors", Field: "rate", Comparator: ComparatorLT, Limit: 0.05},
		},
		{
			name: "trend percentile",
			expr: "response_time.p95<2000",
			want: Rule{Metric: "response_time", Field: "p95", Comparator: ComparatorLT, Limit: 2000},
		},
		{
			name: "default field",
			expr: "requests>=100",
			want: Rule{Metric: "requests", Comparator: ComparatorGTE, Limit: 100},
		},
		{
			name: "lte with whitespace",
			expr: " response_time.p99 <= 5000 ",
			want: Rule{Metric: "response_time", Field: "p99", Comparator: ComparatorLTE, Limit: 5000},
		},
		{
			name: "greater than",
			expr: "iterations>0",
			want: Rule{Metric: "iterations", Comparator: ComparatorGT, Limit: 0},
		},
		{name: "empty", expr: "", wantErr: true},
		{name: "no comparator", expr: "errors.rate 0.05", wantErr: true},
		{name: "no metric", expr: "<0.05", wantErr: true},
		{name: "bad limit", expr: "errors.rate<fast", wantErr: true},
		{name: "dangling dot", expr: "errors.<0.05", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Parse(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule)
		})
	}
}

func TestRule_StringRoundTrip(t *testing.T) {
	exprs := []string{
		"errors.rate<0.05",
		"response_time.p95<2000",
		"requests>=100",
		"response_time.p99<=5000",
	}

	for _, expr := range exprs {
		rule, err := Parse(expr)
		require.NoError(t, err)

		again, err := Parse(rule.String())
		require.NoError(t, err)
		assert.Equal(t, rule, again, "expr %q did not survive a round trip", expr)
	}
}

func TestParseAll_FailsFast(t *testing.T) {
	rules, err := ParseAll([]string{"errors.rate<0.05", "response_time.p95<2000"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = ParseAll([]string{"errors.rate<0.05", "garbage"})
	assert.Error(t, err)
}

func TestEvaluate_StrictComparison(t *testing.T) {
	store := loadmetrics.NewStore()
	for i := 0; i < 100; i++ {
		store.RecordRate("errors", i < 5)
	}
	snap := store.Snapshot()

	rules, err := ParseAll([]string{
		"errors.rate<0.05",
		"errors.rate<=0.05",
		"errors.rate<0.051",
	})
	require.NoError(t, err)

	results := Evaluate(rules, snap)
	require.Len(t, results, 3)

	assert.False(t, results[0].Passed, "value exactly at a strict limit must fail")
	assert.True(t, results[1].Passed)
	assert.True(t, results[2].Passed)
	assert.Equal(t, 0.05, results[0].Actual)
}

func TestEvaluate_PercentileBoundary(t *testing.T) {
	rule, err := Parse("response_time.p95<2000")
	require.NoError(t, err)

	snapFor := func(p95 float64) loadmetrics.Snapshot {
		return loadmetrics.Snapshot{
			Trends: map[string]loadmetrics.TrendValue{
				"response_time": {Count: 100, P95: p95},
			},
		}
	}

	for p95, wantPass := range map[float64]bool{1999: true, 2000: false, 2001: false} {
		results := Evaluate([]Rule{rule}, snapFor(p95))
		require.Len(t, results, 1)
		assert.Equal(t, wantPass, results[0].Passed, "p95=%v", p95)
		assert.Equal(t, p95, results[0].Actual)
	}
}

func TestEvaluate_TrendPercentile(t *testing.T) {
	store := loadmetrics.NewStore()
	for i := 0; i < 100; i++ {
		store.RecordTrend("response_time", 1500)
	}
	snap := store.Snapshot()

	rules, err := ParseAll([]string{
		"response_time.p95<2000",
		"response_time.p95<1000",
	})
	require.NoError(t, err)

	results := Evaluate(rules, snap)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.InDelta(t, 1500, results[0].Actual, 20)
}

func TestEvaluate_MissingMetricFails(t *testing.T) {
	store := loadmetrics.NewStore()
	store.AddCounter("requests", 1)
	snap := store.Snapshot()

	rules, err := ParseAll([]string{"requests>0", "checkout_time.p95<1000"})
	require.NoError(t, err)

	results := Evaluate(rules, snap)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Err, "checkout_time.p95")
	assert.False(t, AllPassed(results))
}
