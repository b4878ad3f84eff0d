package app

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/metrics"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/pipeline"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/telemetry"
)

// Module assembles the platform's components for dependency injection.
var Module = fx.Options(
	fx.Provide(
		newStorageResolver,
		newRunRepository,
		newRecorder,
		newTracer,
		pipeline.NewRunner,
	),
)

// newStorageResolver builds the storage connection resolver and closes all
// established connections at shutdown.
func newStorageResolver(lc fx.Lifecycle, cfg *config.Config) storage.StorageConnectionResolver {
	resolver := storage.NewConfigResolver(cfg)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return resolver.CloseAll() },
	})
	return resolver
}

// newRunRepository opens the metadata store and ties its lifetime to the
// application.
func newRunRepository(lc fx.Lifecycle, cfg *config.Config) (repository.RunRepository, error) {
	repo, err := repository.NewRunRepository(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return repo.Close() },
	})
	return repo, nil
}

// newRecorder selects the metrics backend: a Prometheus recorder with an
// optional exposition endpoint, or a no-op recorder when disabled.
func newRecorder(lc fx.Lifecycle, cfg *config.Config) metrics.Recorder {
	mcfg := cfg.Platform.Metrics
	if !mcfg.Enabled {
		return metrics.NoopRecorder{}
	}
	rec := metrics.NewPrometheusRecorder()
	if mcfg.ListenAddr != "" {
		srv := metrics.NewServer(mcfg.ListenAddr, rec)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { srv.Start(); return nil },
			OnStop:  srv.Stop,
		})
	}
	return rec
}

// newTracer builds the OTLP tracer provider and ties its flush to shutdown.
func newTracer(lc fx.Lifecycle, cfg *config.Config) (trace.Tracer, error) {
	provider, err := telemetry.NewProvider(context.Background(), cfg.Platform.Telemetry)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: provider.Shutdown,
	})
	return provider.Tracer(), nil
}
