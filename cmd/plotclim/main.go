package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/terrabiota/plotclim/internal/adapter/csvfile"
	"github.com/terrabiota/plotclim/internal/adapter/occurrence"
	"github.com/terrabiota/plotclim/internal/adapter/worldclim"
	"github.com/terrabiota/plotclim/internal/adapter/xlsx"
	"github.com/terrabiota/plotclim/internal/config"
	"github.com/terrabiota/plotclim/internal/observability"
	"github.com/terrabiota/plotclim/internal/pipeline"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg).With("run_id", uuid.NewString())
	metrics := observability.NewMetrics()

	workbooks := xlsx.NewReader(cfg.SpeciesPath(), cfg.RedListPath(), logger)
	archive := occurrence.NewReader(cfg.OccurrencePath(), logger)
	climate := worldclim.NewClient(
		cfg.Climate.BaseURL,
		cfg.Climate.Resolution,
		cfg.Climate.CacheDir,
		cfg.DownloadTimeout(),
		cfg.Climate.RateLimit,
		logger,
		metrics,
	)
	results := csvfile.NewWriter(cfg.SummaryPath(), cfg.SpeciesDirPath(), logger)

	p := pipeline.New(workbooks, workbooks, archive, climate, results, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("plotclim starting",
		"resolution", cfg.Climate.Resolution,
		"data_dir", cfg.Data.Dir,
		"output_dir", cfg.Output.Dir,
	)

	runErr := p.Run(ctx)
	pushMetrics(cfg, logger)
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		os.Exit(1)
	}
	logger.Info("plotclim finished")
}

// pushMetrics sends the run's metrics when a Pushgateway is configured. Push
// failures are logged as warnings, never returned; the output files are the
// product of the run, the metrics are not.
func pushMetrics(cfg *config.Config, logger *slog.Logger) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.PushMetrics(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn("metrics push failed", "error", err, "url", cfg.Metrics.PushgatewayURL)
	}
}
