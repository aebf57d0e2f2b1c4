package report

import (
	"bytes"
	"html/template"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/internal/threshold"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

type htmlTrendRow struct {
	Name  string
	Value loadmetrics.TrendValue
}

type htmlRateRow struct {
	Name  string
	Value loadmetrics.RateValue
}

type htmlCounterRow struct {
	Name  string
	Value loadmetrics.CounterValue
}

type htmlData struct {
	Result   RunResult
	Counters []htmlCounterRow
	Rates    []htmlRateRow
	Trends   []htmlTrendRow
	Rules    []threshold.Result
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"ms": formatMillis,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Load Test Report {{.Result.RunID}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #1a1a2e; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #cbd5e1; padding: 0.35rem 0.7rem; text-align: left; font-size: 0.9rem; }
th { background: #f1f5f9; }
.pass { color: #15803d; font-weight: 600; }
.fail { color: #b91c1c; font-weight: 600; }
</style>
</head>
<body>
<h1>Load Test Report</h1>
<table>
<tr><th>Run ID</th><td>{{.Result.RunID}}</td></tr>
<tr><th>Target</th><td>{{.Result.Target}}</td></tr>
<tr><th>Final state</th><td>{{.Result.State}}</td></tr>
<tr><th>Peak concurrency</th><td>{{.Result.PeakConcurrency}}</td></tr>
<tr><th>Verdict</th><td class="{{if .Result.OverallPass}}pass{{else}}fail{{end}}">{{.Result.Verdict}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Metric</th><th>Count</th></tr>
{{range .Counters}}<tr><td>{{.Name}}</td><td>{{.Value.Count}}</td></tr>
{{end}}</table>

<h2>Rates</h2>
<table>
<tr><th>Metric</th><th>Rate</th><th>Passes</th><th>Count</th></tr>
{{range .Rates}}<tr><td>{{.Name}}</td><td>{{printf "%.4f" .Value.Rate}}</td><td>{{.Value.Passes}}</td><td>{{.Value.Count}}</td></tr>
{{end}}</table>

<h2>Trends</h2>
<table>
<tr><th>Metric</th><th>Avg</th><th>Min</th><th>Max</th><th>p50</th><th>p90</th><th>p95</th><th>p99</th><th>Samples</th></tr>
{{range .Trends}}<tr><td>{{.Name}}</td><td>{{ms .Value.Avg}}</td><td>{{ms .Value.Min}}</td><td>{{ms .Value.Max}}</td><td>{{ms .Value.P50}}</td><td>{{ms .Value.P90}}</td><td>{{ms .Value.P95}}</td><td>{{ms .Value.P99}}</td><td>{{.Value.Count}}</td></tr>
{{end}}</table>

<h2>Thresholds</h2>
<table>
<tr><th>Rule</th><th>Status</th><th>Actual</th></tr>
{{range .Rules}}<tr><td>{{.Rule.String}}</td><td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}PASS{{else}}FAIL{{end}}</td><td>{{if .Err}}{{.Err}}{{else}}{{printf "%g" .Actual}}{{end}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// RenderHTML renders the shareable single-page artifact
func RenderHTML(result RunResult) ([]byte, error) {
	data := htmlData{Result: result}

	for _, name := range sortedKeys(result.Snapshot.Counters) {
		data.Counters = append(data.Counters, htmlCounterRow{Name: name, Value: result.Snapshot.Counters[name]})
	}
	for _, name := range sortedKeys(result.Snapshot.Rates) {
		data.Rates = append(data.Rates, htmlRateRow{Name: name, Value: result.Snapshot.Rates[name]})
	}
	for _, name := range sortedKeys(result.Snapshot.Trends) {
		data.Trends = append(data.Trends, htmlTrendRow{Name: name, Value: result.Snapshot.Trends[name]})
	}
	data.Rules = append(append([]threshold.Result{}, result.Thresholds...), result.SanityChecks...)

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, errors.NewInternalError("failed to render html report").WithCause(err)
	}
	return buf.Bytes(), nil
}
