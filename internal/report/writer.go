package report

import (
	"os"
	"path/filepath"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

// WriteArtifacts renders and writes every artifact with a configured path.
// A write failure never masks the run verdict: the text summary falls back
// to stdout and the first write error is returned for logging only.
func WriteArtifacts(result RunResult, out config.OutputConfig, logger *logging.Logger) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if out.JSONPath != "" {
		data, err := RenderJSON(result)
		if err == nil {
			err = writeFile(out.JSONPath, data)
		}
		record(err)
		logArtifact(logger, "json", out.JSONPath, err)
	}

	text := RenderText(result)
	if out.TextPath != "" {
		err := writeFile(out.TextPath, text)
		record(err)
		logArtifact(logger, "text", out.TextPath, err)
		if err != nil {
			// Operators still get the summary when the results dir is unwritable
			os.Stdout.Write(text)
		}
	} else {
		os.Stdout.Write(text)
	}

	if out.HTMLPath != "" {
		data, err := RenderHTML(result)
		if err == nil {
			err = writeFile(out.HTMLPath, data)
		}
		record(err)
		logArtifact(logger, "html", out.HTMLPath, err)
	}

	if out.PDFPath != "" {
		data, err := RenderPDF(result)
		if err == nil {
			err = writeFile(out.PDFPath, data)
		}
		record(err)
		logArtifact(logger, "pdf", out.PDFPath, err)
	}

	return firstErr
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewReportWriteError(path, "could not create results directory").WithCause(err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewReportWriteError(path, "write failed").WithCause(err)
	}
	return nil
}

func logArtifact(logger *logging.Logger, kind, path string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("failed to write report artifact", "kind", kind, "path", path, "error", err.Error())
		return
	}
	logger.Info("report artifact written", "kind", kind, "path", path)
}
