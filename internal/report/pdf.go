package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/dsr-ph/dsr-loadtest/internal/threshold"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// RenderPDF renders the printable artifact. The creation date is pinned to
// the run's start time so identical results produce identical bytes.
func RenderPDF(result RunResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(result.StartedAt.UTC())
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Load Test Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	writeKV := func(key, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, key, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	writeKV("Run ID", result.RunID)
	writeKV("Target", result.Target)
	writeKV("Final state", result.State)
	writeKV("Started", result.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	writeKV("Wall clock", result.WallClock.String())
	writeKV("Peak concurrency", fmt.Sprintf("%d", result.PeakConcurrency))
	writeKV("Verdict", result.Verdict())
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Trends (milliseconds)")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 8)
	headers := []string{"Metric", "Avg", "Min", "Max", "p50", "p95", "p99", "n"}
	widths := []float64{62, 18, 18, 18, 18, 18, 18, 14}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, name := range sortedKeys(result.Snapshot.Trends) {
		t := result.Snapshot.Trends[name]
		cells := []string{
			name,
			fmt.Sprintf("%.1f", t.Avg),
			fmt.Sprintf("%.1f", t.Min),
			fmt.Sprintf("%.1f", t.Max),
			fmt.Sprintf("%.1f", t.P50),
			fmt.Sprintf("%.1f", t.P95),
			fmt.Sprintf("%.1f", t.P99),
			fmt.Sprintf("%d", t.Count),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Thresholds")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 9)
	rules := append(append([]threshold.Result{}, result.Thresholds...), result.SanityChecks...)
	for _, res := range rules {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		line := fmt.Sprintf("[%s] %s", status, res.Rule.String())
		if res.Err != "" {
			line += "  (" + res.Err + ")"
		} else {
			line += fmt.Sprintf("  actual=%g", res.Actual)
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.NewInternalError("failed to render pdf report").WithCause(err)
	}
	return buf.Bytes(), nil
}
