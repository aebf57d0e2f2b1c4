package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dsr-ph/dsr-loadtest/internal/report"
	"github.com/dsr-ph/dsr-loadtest/internal/runner"
	"github.com/dsr-ph/dsr-loadtest/internal/statusapi"
	"github.com/dsr-ph/dsr-loadtest/pkg/config"
	"github.com/dsr-ph/dsr-loadtest/pkg/logging"
)

func main() {
	os.Exit(run())
}

// run is split out so deferred cleanup happens before the process exits
func run() int {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "dsr-loadtest",
	})
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}

	// First SIGINT or SIGTERM drains virtual users and still evaluates;
	// a second signal kills the process the usual way.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := logging.NewRunID()
	telemetry := statusapi.NewTelemetry(runID)
	if cfg.Status.Enabled {
		server := statusapi.NewServer(cfg.Status.Addr, telemetry, logger)
		server.Start()
		defer server.Stop()
	}

	r, err := runner.New(cfg, logger,
		runner.WithRunID(runID),
		runner.WithObserver(telemetry),
	)
	if err != nil {
		logger.Error("invalid run configuration", "error", err.Error())
		return 1
	}

	logger.Info("starting load test",
		"target", cfg.Target.BaseURL,
		"total_duration", cfg.Load.TotalDuration().String(),
		"peak_target", cfg.Load.PeakTarget(),
	)

	result := r.Run(ctx)

	// Artifact write failures are logged inside; they never change the verdict
	_ = report.WriteArtifacts(result, cfg.Output, logger)

	logger.Info("load test finished",
		"run_id", result.RunID,
		"verdict", result.Verdict(),
		"peak_concurrency", result.PeakConcurrency,
	)

	return runner.ExitCode(result)
}
