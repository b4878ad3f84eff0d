// Package app assembles and runs the analytics platform with uber-fx.
package app

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/fx"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/pipeline"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// migrationsBasePath is the directory inside the embedded FS holding the
// per-dialect migration files.
const migrationsBasePath = "resources/migrations"

// RunApplication loads configuration, builds the dependency graph and
// executes one pipeline run over the given date range, then shuts down.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, migrationsFS embed.FS, startDate, endDate string) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLogLevel(cfg.Platform.System.Logging.Level)

	dateRange, err := pipeline.ParseDateRange(startDate, endDate)
	if err != nil {
		logger.Fatalf("Invalid date range: %v", err)
	}

	app := fx.New(
		fx.Supply(
			cfg,
			dateRange,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		logger.Module,
		Module,
		fx.Invoke(func(cfg *config.Config) error {
			return repository.Migrate(cfg, migrationsFS, migrationsBasePath)
		}),
		fx.Invoke(fx.Annotate(startPipeline, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // runner *pipeline.Runner
			"",              // dateRange pipeline.DateRange
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// startPipeline launches the run in a background goroutine at startup and
// requests shutdown once it finishes.
func startPipeline(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *pipeline.Runner,
	dateRange pipeline.DateRange,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in pipeline execution: %v", r)
					}
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shut down application: %v", err)
					}
				}()

				report, err := runner.Run(appCtx, dateRange)
				if err != nil {
					if exception.IsTemporary(err) {
						logger.Errorf("Pipeline run failed with a retryable error, re-running the range is safe: %s",
							exception.ExtractErrorMessage(err))
					} else {
						logger.Errorf("Pipeline run failed: %s", exception.ExtractErrorMessage(err))
					}
				}
				if report != nil {
					logReport(report)
				}
			}()
			return nil
		},
	})
}

// logReport prints the run's summary counters.
func logReport(report *pipeline.RunReport) {
	logger.Infof("Run %s: %d partitions processed, %d failed, %d rows rejected.",
		report.RunID, len(report.Partitions), report.Failed, report.TotalRejected())

	dist := report.ReasonDistribution()
	if len(dist) > 0 {
		parts := make([]string, 0, len(dist))
		for reason, n := range dist {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(parts)
		logger.Infof("Rejection distribution: %s", strings.Join(parts, " "))
	}
	for _, p := range report.Partitions {
		if p.Err != nil {
			logger.Warnf("Partition %s did not complete: %s", p.Date, exception.ExtractErrorMessage(p.Err))
		}
	}
}
