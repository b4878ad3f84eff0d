package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/dimension"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/lake"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/metrics"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/stage/aggregate"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/stage/cleaning"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/stage/enrichment"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/storage"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "pipeline"

// Stage names as persisted and exported.
const (
	StageIngestion      = "ingestion"
	StageBronze         = "bronze"
	StageCleaning       = "cleaning"
	StageEnrichment     = "enrichment"
	StageSilver         = "silver"
	StageGold           = "gold"
	StageWeatherSummary = "weather_summary"
)

// tables bundles the lake tables a run writes.
type tables struct {
	bronze *lake.Table[entity.TripRow]
	silver *lake.Table[entity.EnrichedTripRow]

	daily    *lake.Table[entity.DailyMetricsRow]
	hourly   *lake.Table[entity.HourlyPatternRow]
	routes   *lake.Table[entity.RouteRow]
	vendors  *lake.Table[entity.VendorPerformanceRow]
	weather  *lake.Table[entity.WeatherImpactRow]
	payments *lake.Table[entity.PaymentAnalysisRow]

	weatherSummary *lake.Table[entity.WeatherImpactSummary]
}

func newTables(conn storage.StorageConnection, cfg *config.Config) (*tables, error) {
	lakeCfg := cfg.Platform.Lake
	pipeCfg := cfg.Platform.Pipeline
	goldName := func(rollup string) string { return pipeCfg.RollupPrefix + rollup }

	t := &tables{}
	var err error
	if t.bronze, err = lake.NewTable[entity.TripRow](conn, lakeCfg.Bucket, pipeCfg.TripTable, lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.silver, err = lake.NewTable[entity.EnrichedTripRow](conn, lakeCfg.Bucket, pipeCfg.EnrichedTable, lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.daily, err = lake.NewTable[entity.DailyMetricsRow](conn, lakeCfg.Bucket, goldName("daily_metrics"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.hourly, err = lake.NewTable[entity.HourlyPatternRow](conn, lakeCfg.Bucket, goldName("hourly_patterns"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.routes, err = lake.NewTable[entity.RouteRow](conn, lakeCfg.Bucket, goldName("top_routes"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.vendors, err = lake.NewTable[entity.VendorPerformanceRow](conn, lakeCfg.Bucket, goldName("driver_performance"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.weather, err = lake.NewTable[entity.WeatherImpactRow](conn, lakeCfg.Bucket, goldName("weather_impact"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.payments, err = lake.NewTable[entity.PaymentAnalysisRow](conn, lakeCfg.Bucket, goldName("payment_analysis"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	if t.weatherSummary, err = lake.NewTable[entity.WeatherImpactSummary](conn, lakeCfg.Bucket, goldName("weather_summary"), lakeCfg.CompressionType); err != nil {
		return nil, err
	}
	return t, nil
}

// Runner executes the transformation pipeline over a date range.
type Runner struct {
	cfg      *config.Config
	resolver storage.StorageConnectionResolver
	repo     repository.RunRepository
	recorder metrics.Recorder
	tracer   trace.Tracer
}

// NewRunner wires a Runner from its dependencies.
func NewRunner(cfg *config.Config, resolver storage.StorageConnectionResolver, repo repository.RunRepository, recorder metrics.Recorder, tracer trace.Tracer) *Runner {
	return &Runner{
		cfg:      cfg,
		resolver: resolver,
		repo:     repo,
		recorder: recorder,
		tracer:   tracer,
	}
}

// Run processes the date range through every tier and returns the run
// report. Partitions are independent: one failing date does not abort the
// others, but any failure yields a non-nil error and a FAILED run status.
// Re-invoking Run for an overlapping range is safe; the enriched and rollup
// tiers overwrite their partitions wholesale.
func (r *Runner) Run(ctx context.Context, dr DateRange) (*RunReport, error) {
	runID := uuid.New().String()
	report := &RunReport{
		RunID:     runID,
		StartDate: dr.Start.Format("2006-01-02"),
		EndDate:   dr.End.Format("2006-01-02"),
		StartedAt: time.Now().UTC(),
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.start_date", report.StartDate),
		attribute.String("run.end_date", report.EndDate),
	))
	defer span.End()

	logger.Infof("Starting pipeline run '%s' for %s..%s.", runID, report.StartDate, report.EndDate)

	conn, err := r.resolver.ResolveStorageConnection(ctx, r.cfg.Platform.Lake.StorageRef)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to resolve lake storage connection", err, false, true)
	}
	tbls, err := newTables(conn, r.cfg)
	if err != nil {
		return nil, err
	}

	bucket := r.cfg.Platform.Lake.Bucket
	sources := r.cfg.Platform.Sources
	zones, err := dimension.LoadZones(ctx, conn, bucket, sources.ZoneObject)
	if err != nil {
		return nil, err
	}
	weather, err := dimension.LoadWeather(ctx, conn, bucket, sources.WeatherObject, r.cfg.Platform.Pipeline.Weather.MatchWindowHours)
	if err != nil {
		return nil, err
	}

	if err := r.repo.CreateRun(ctx, &repository.PipelineRun{
		ID:        runID,
		StartDate: report.StartDate,
		EndDate:   report.EndDate,
	}); err != nil {
		return nil, err
	}

	ingested, err := r.ingest(ctx, runID, conn, dr)
	if err != nil {
		if exception.IsFatal(err) {
			logger.Errorf("Run '%s': the raw input violates the contract and must change before a re-run: %s",
				runID, exception.ExtractErrorMessage(err))
		}
		r.finishRun(ctx, runID, report, err)
		return report, err
	}
	logger.Infof("Run '%s': admitted %d trips across %d date partitions.", runID, ingested.Admitted, len(ingested.ByDate))

	deps := &partitionDeps{
		tables:   tbls,
		cleaner:  cleaning.NewCleaner(r.cfg.Platform.Pipeline.Cleaning, zones),
		enricher: enrichment.NewEnricher(r.cfg.Platform.Pipeline, zones, weather),
		bucketer: aggregate.NewHourBucketer(r.cfg.Platform.Pipeline.RushHours),
	}

	dates := dr.Dates()
	workers := r.cfg.Platform.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(dates) {
		workers = len(dates)
	}

	// Dates whose raw input was rejected fail up front; the remaining
	// partitions are unaffected and still process.
	reports := make([]PartitionReport, 0, len(dates))
	for _, date := range dates {
		if rejErr, ok := ingested.RejectedDates[date]; ok {
			reports = append(reports, PartitionReport{Date: date, Err: rejErr})
		}
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	jobs := make(chan string)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range jobs {
				pr := r.processPartition(ctx, runID, date, ingested.ByDate[date], deps)
				mu.Lock()
				reports = append(reports, pr)
				mu.Unlock()
			}
		}()
	}
	for _, date := range dates {
		if _, ok := ingested.RejectedDates[date]; ok {
			continue
		}
		jobs <- date
	}
	close(jobs)
	wg.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Date < reports[j].Date })
	report.Partitions = reports

	var runErr *multierror.Error
	for _, pr := range reports {
		if pr.Err != nil {
			report.Failed++
			runErr = multierror.Append(runErr, fmt.Errorf("partition %s: %w", pr.Date, pr.Err))
		}
	}

	// The condition-level weather summary spans the whole range, so it is
	// recomputed once all per-date rollups have committed. A failed
	// partition would leave it reading stale per-date rows, so it is
	// skipped when any partition failed.
	if report.Failed == 0 {
		if err := r.writeWeatherSummary(ctx, runID, dr, tbls); err != nil {
			runErr = multierror.Append(runErr, err)
		}
	} else {
		logger.Warnf("Run '%s': skipping the weather summary, %d partitions failed.", runID, report.Failed)
	}

	r.finishRun(ctx, runID, report, runErr.ErrorOrNil())
	if err := runErr.ErrorOrNil(); err != nil {
		span.SetStatus(codes.Error, "run finished with failures")
		return report, err
	}
	return report, nil
}

// writeWeatherSummary recomputes the condition-level weather rollup across
// the run's date range from the committed per-date rows and overwrites the
// range's summary partition.
func (r *Runner) writeWeatherSummary(ctx context.Context, runID string, dr DateRange, tbls *tables) error {
	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+StageWeatherSummary)
	defer span.End()
	started := time.Now().UTC()

	rangeKey := dr.Start.Format("2006-01-02") + "_" + dr.End.Format("2006-01-02")
	perDate, err := tbls.weather.ReadPartitions(ctx, dr.Dates())
	var summary []entity.WeatherImpactSummary
	if err == nil {
		summary = aggregate.SummarizeWeatherImpact(perDate)
		err = tbls.weatherSummary.WritePartition(ctx, rangeKey, summary, lake.OverwritePartition)
	}

	counters := StageCounters{
		Stage:        StageWeatherSummary,
		PartitionKey: rangeKey,
		RowsRead:     int64(len(perDate)),
		RowsWritten:  int64(len(summary)),
		Duration:     time.Since(started),
	}
	if err != nil {
		span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
	}
	r.persistStage(ctx, runID, rangeKey, counters, err, started)
	return err
}

// ingest reads the raw files as its own recorded stage.
func (r *Runner) ingest(ctx context.Context, runID string, conn storage.StorageConnection, dr DateRange) (*IngestResult, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.ingestion")
	defer span.End()
	started := time.Now().UTC()

	ingestor := NewIngestor(conn, r.cfg.Platform.Lake.Bucket, r.cfg.Platform.Sources.TripPrefix)
	res, err := ingestor.ReadTrips(ctx, dr)
	if res == nil {
		res = &IngestResult{}
	}

	counters := StageCounters{
		Stage:        StageIngestion,
		RowsRead:     res.Admitted + res.Rejected,
		RowsWritten:  res.Admitted,
		RowsRejected: res.Rejected,
		Duration:     time.Since(started),
	}
	if res.Rejected > 0 {
		counters.ReasonCounts = map[string]int{"SCHEMA_VIOLATION": int(res.Rejected)}
		r.recorder.RecordRejected(StageIngestion, "SCHEMA_VIOLATION", int(res.Rejected))
	}
	if err != nil {
		span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
	}
	r.persistStage(ctx, runID, "", counters, err, started)
	return res, err
}

// partitionDeps bundles the per-run stage components shared by all workers.
type partitionDeps struct {
	tables   *tables
	cleaner  *cleaning.Cleaner
	enricher *enrichment.Enricher
	bucketer *aggregate.HourBucketer
}

// processPartition runs one date through bronze, cleaning, enrichment,
// silver and gold in order. Each stage reads only committed output of its
// predecessor; an error stops the partition at that stage boundary.
func (r *Runner) processPartition(ctx context.Context, runID, date string, trips []entity.TripRecord, deps *partitionDeps) PartitionReport {
	pr := PartitionReport{Date: date}
	ctx, span := r.tracer.Start(ctx, "pipeline.partition", trace.WithAttributes(
		attribute.String("partition.date", date),
	))
	defer span.End()

	fail := func(err error) PartitionReport {
		pr.Err = err
		span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
		if exception.IsTemporary(err) {
			logger.Errorf("Partition %s failed (retryable, commits are atomic so a re-run is safe): %s",
				date, exception.ExtractErrorMessage(err))
		} else {
			logger.Errorf("Partition %s failed: %s", date, exception.ExtractErrorMessage(err))
		}
		return pr
	}

	// Bronze: append the admitted batch.
	_, err := r.execStage(ctx, runID, date, StageBronze, &pr, func(ctx context.Context) (stageOutcome, error) {
		rows := make([]entity.TripRow, len(trips))
		for i, t := range trips {
			rows[i] = t.ToRow()
		}
		if err := deps.tables.bronze.WritePartition(ctx, date, rows, lake.Append); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{read: int64(len(trips)), written: int64(len(trips))}, nil
	})
	if err != nil {
		return fail(err)
	}

	// Cleaning: consume the committed bronze partition.
	var cleaned cleaning.Result
	_, err = r.execStage(ctx, runID, date, StageCleaning, &pr, func(ctx context.Context) (stageOutcome, error) {
		rows, err := deps.tables.bronze.ReadPartition(ctx, date)
		if err != nil {
			return stageOutcome{}, err
		}
		records := make([]entity.TripRecord, len(rows))
		for i, row := range rows {
			records[i] = row.ToRecord()
		}
		cleaned = deps.cleaner.Clean(records)
		reasons := make(map[string]int, len(cleaned.ReasonCounts))
		for reason, n := range cleaned.ReasonCounts {
			reasons[string(reason)] = n
			r.recorder.RecordRejected(StageCleaning, string(reason), n)
		}
		return stageOutcome{
			read:     int64(len(records)),
			written:  int64(len(cleaned.Kept)),
			rejected: int64(len(cleaned.Rejected)),
			reasons:  reasons,
		}, nil
	})
	if err != nil {
		return fail(err)
	}

	// Enrichment: joins, derived metrics, deduplication.
	var enriched enrichment.Result
	_, err = r.execStage(ctx, runID, date, StageEnrichment, &pr, func(ctx context.Context) (stageOutcome, error) {
		enriched = deps.enricher.Enrich(cleaned.Kept)
		if enriched.DuplicatesDropped > 0 {
			r.recorder.RecordRejected(StageEnrichment, "DUPLICATE", enriched.DuplicatesDropped)
		}
		return stageOutcome{
			read:     int64(len(cleaned.Kept)),
			written:  int64(len(enriched.Enriched)),
			rejected: int64(enriched.DuplicatesDropped),
			reasons: map[string]int{
				"zone_misses":    enriched.ZoneMisses,
				"weather_misses": enriched.WeatherMisses,
			},
		}, nil
	})
	if err != nil {
		return fail(err)
	}

	// Silver: overwrite this date's enriched partition.
	_, err = r.execStage(ctx, runID, date, StageSilver, &pr, func(ctx context.Context) (stageOutcome, error) {
		rows := make([]entity.EnrichedTripRow, len(enriched.Enriched))
		for i, e := range enriched.Enriched {
			rows[i] = e.ToRow()
		}
		if err := deps.tables.silver.WritePartition(ctx, date, rows, lake.OverwritePartition); err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{read: int64(len(rows)), written: int64(len(rows))}, nil
	})
	if err != nil {
		return fail(err)
	}

	// Gold: recompute every rollup from the committed silver partition. The
	// rollups are independent and write distinct tables, so they run
	// concurrently.
	_, err = r.execStage(ctx, runID, date, StageGold, &pr, func(ctx context.Context) (stageOutcome, error) {
		silverRows, err := deps.tables.silver.ReadPartition(ctx, date)
		if err != nil {
			return stageOutcome{}, err
		}
		input := make([]entity.EnrichedTrip, len(silverRows))
		for i, row := range silverRows {
			input[i] = row.ToEnriched()
		}

		written, err := r.writeRollups(ctx, date, input, deps)
		if err != nil {
			return stageOutcome{}, err
		}
		return stageOutcome{read: int64(len(input)), written: written}, nil
	})
	if err != nil {
		return fail(err)
	}

	logger.Infof("Partition %s completed.", date)
	return pr
}

// writeRollups computes and commits the six rollups concurrently, returning
// the total rows written across the gold tables.
func (r *Runner) writeRollups(ctx context.Context, date string, input []entity.EnrichedTrip, deps *partitionDeps) (int64, error) {
	type rollupJob func(ctx context.Context) (int, error)
	jobs := map[string]rollupJob{
		"daily_metrics": func(ctx context.Context) (int, error) {
			rows := aggregate.DailyMetrics(date, input)
			return len(rows), deps.tables.daily.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
		"hourly_patterns": func(ctx context.Context) (int, error) {
			rows := aggregate.HourlyPatterns(date, input, deps.bucketer)
			return len(rows), deps.tables.hourly.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
		"top_routes": func(ctx context.Context) (int, error) {
			rows := aggregate.TopRoutes(date, input)
			return len(rows), deps.tables.routes.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
		"driver_performance": func(ctx context.Context) (int, error) {
			rows := aggregate.VendorPerformance(date, input)
			return len(rows), deps.tables.vendors.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
		"weather_impact": func(ctx context.Context) (int, error) {
			rows := aggregate.WeatherImpact(date, input)
			return len(rows), deps.tables.weather.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
		"payment_analysis": func(ctx context.Context) (int, error) {
			rows := aggregate.PaymentAnalysis(date, input)
			return len(rows), deps.tables.payments.WritePartition(ctx, date, rows, lake.OverwritePartition)
		},
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		total   int64
		rollErr *multierror.Error
	)
	for name, job := range jobs {
		wg.Add(1)
		go func(name string, job rollupJob) {
			defer wg.Done()
			n, err := job(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rollErr = multierror.Append(rollErr, fmt.Errorf("rollup %s: %w", name, err))
				return
			}
			total += int64(n)
		}(name, job)
	}
	wg.Wait()
	return total, rollErr.ErrorOrNil()
}

// stageOutcome carries one stage execution's counters back to execStage.
type stageOutcome struct {
	read     int64
	written  int64
	rejected int64
	reasons  map[string]int
}

// execStage runs one stage with tracing, timing, metrics and persistence
// around it, appending the counters to the partition report.
func (r *Runner) execStage(ctx context.Context, runID, date, stage string, pr *PartitionReport, fn func(ctx context.Context) (stageOutcome, error)) (stageOutcome, error) {
	if err := ctx.Err(); err != nil {
		return stageOutcome{}, exception.NewPipelineError(moduleName,
			fmt.Sprintf("run aborted before stage '%s' for partition '%s'", stage, date), err, false, false)
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+stage, trace.WithAttributes(
		attribute.String("partition.date", date),
	))
	defer span.End()

	started := time.Now().UTC()
	out, err := fn(ctx)
	duration := time.Since(started)

	counters := StageCounters{
		Stage:        stage,
		PartitionKey: date,
		RowsRead:     out.read,
		RowsWritten:  out.written,
		RowsRejected: out.rejected,
		ReasonCounts: out.reasons,
		Duration:     duration,
	}
	pr.Stages = append(pr.Stages, counters)

	if err != nil {
		span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
	}
	r.persistStage(ctx, runID, date, counters, err, started)
	return out, err
}

// persistStage records one stage execution in the metadata store and the
// metrics recorder. Persistence failures are logged, not fatal: losing a
// metadata row must not fail a partition whose data committed.
func (r *Runner) persistStage(ctx context.Context, runID, date string, counters StageCounters, stageErr error, started time.Time) {
	r.recorder.RecordRead(counters.Stage, int(counters.RowsRead))
	r.recorder.RecordWritten(counters.Stage, int(counters.RowsWritten))
	r.recorder.RecordStageDuration(counters.Stage, counters.Duration)

	status := repository.RunStatusCompleted
	errMsg := ""
	if stageErr != nil {
		status = repository.RunStatusFailed
		errMsg = exception.ExtractErrorMessage(stageErr)
	}
	completed := started.Add(counters.Duration)
	exec := &repository.StageExecution{
		RunID:        runID,
		Stage:        counters.Stage,
		PartitionKey: date,
		RowsRead:     counters.RowsRead,
		RowsWritten:  counters.RowsWritten,
		RowsRejected: counters.RowsRejected,
		Status:       status,
		ErrorMessage: errMsg,
		StartedAt:    started,
		CompletedAt:  &completed,
	}
	if err := exec.SetReasonCounts(counters.ReasonCounts); err != nil {
		logger.Warnf("Failed to serialize reason counts for stage '%s': %v", counters.Stage, err)
	}
	if err := r.repo.SaveStageExecution(ctx, exec); err != nil {
		logger.Warnf("Failed to persist stage execution (run '%s', stage '%s', partition '%s'): %v",
			runID, counters.Stage, date, err)
	}
}

// finishRun closes out the run record and the report.
func (r *Runner) finishRun(ctx context.Context, runID string, report *RunReport, runErr error) {
	report.FinishedAt = time.Now().UTC()

	status := repository.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = repository.RunStatusFailed
		errMsg = exception.ExtractErrorMessage(runErr)
	}
	r.recorder.RecordRunCompleted(status)
	if err := r.repo.CompleteRun(ctx, runID, status, errMsg); err != nil {
		logger.Warnf("Failed to finalize run '%s' in the metadata store: %v", runID, err)
	}
	logger.Infof("Pipeline run '%s' finished with status %s in %s.", runID, status, report.FinishedAt.Sub(report.StartedAt))
}
