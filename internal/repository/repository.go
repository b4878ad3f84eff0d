package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

const moduleName = "repository"

// RunRepository persists pipeline runs and their stage executions.
type RunRepository interface {
	// CreateRun inserts a new run in the STARTED state.
	CreateRun(ctx context.Context, run *PipelineRun) error
	// CompleteRun transitions a run to a terminal status.
	CompleteRun(ctx context.Context, runID, status, errorMessage string) error
	// SaveStageExecution inserts one stage execution record.
	SaveStageExecution(ctx context.Context, exec *StageExecution) error
	// FindRun loads a run by id.
	FindRun(ctx context.Context, runID string) (*PipelineRun, error)
	// ListStageExecutions returns a run's stage executions ordered by id.
	ListStageExecutions(ctx context.Context, runID string) ([]StageExecution, error)
	// Close releases the underlying connection.
	Close() error
}

// gormRunRepository is the GORM-backed implementation of RunRepository.
type gormRunRepository struct {
	db *gorm.DB
}

// openMetadataDB resolves, decodes and opens the metadata database named by
// cfg.Platform.Infrastructure.MetadataDBRef.
func openMetadataDB(cfg *config.Config) (*gorm.DB, DatabaseConfig, error) {
	name := cfg.Platform.Infrastructure.MetadataDBRef
	var dbCfg DatabaseConfig

	raw, ok := cfg.Platform.Databases[name]
	if !ok {
		return nil, dbCfg, exception.NewPipelineError(moduleName,
			fmt.Sprintf("database connection '%s' is not configured", name), nil, false, false)
	}
	if err := mapstructure.Decode(raw, &dbCfg); err != nil {
		return nil, dbCfg, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to decode database config '%s'", name), err, false, false)
	}

	factory, err := dialectorFor(dbCfg.Type)
	if err != nil {
		return nil, dbCfg, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to resolve dialector for connection '%s'", name), err, false, false)
	}
	dialector, err := factory(dbCfg)
	if err != nil {
		return nil, dbCfg, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to build dialector for connection '%s'", name), err, false, false)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, dbCfg, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to open database connection '%s' (%s)", name, dbCfg.Type), err, false, true)
	}
	logger.Debugf("Opened metadata database connection '%s' (%s).", name, dbCfg.Type)
	return db, dbCfg, nil
}

// NewRunRepository opens the configured metadata database and returns a
// repository bound to it. The database type's driver package must be
// imported by the caller.
func NewRunRepository(cfg *config.Config) (RunRepository, error) {
	db, _, err := openMetadataDB(cfg)
	if err != nil {
		return nil, err
	}
	return &gormRunRepository{db: db}, nil
}

// NewRunRepositoryWithDB wraps an existing GORM handle; tests use it with an
// in-memory or mocked database.
func NewRunRepositoryWithDB(db *gorm.DB) RunRepository {
	return &gormRunRepository{db: db}
}

func (r *gormRunRepository) CreateRun(ctx context.Context, run *PipelineRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusStarted
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to insert pipeline run '%s'", run.ID), err, false, true)
	}
	return nil
}

func (r *gormRunRepository) CompleteRun(ctx context.Context, runID, status, errorMessage string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&PipelineRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"completed_at":  &now,
		})
	if res.Error != nil {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to complete pipeline run '%s'", runID), res.Error, false, true)
	}
	if res.RowsAffected == 0 {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("pipeline run '%s' not found", runID), gorm.ErrRecordNotFound, false, false)
	}
	return nil
}

func (r *gormRunRepository) SaveStageExecution(ctx context.Context, exec *StageExecution) error {
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		return exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to insert stage execution (run '%s', stage '%s', partition '%s')",
				exec.RunID, exec.Stage, exec.PartitionKey), err, false, true)
	}
	return nil
}

func (r *gormRunRepository) FindRun(ctx context.Context, runID string) (*PipelineRun, error) {
	var run PipelineRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to load pipeline run '%s'", runID), err, false, false)
	}
	return &run, nil
}

func (r *gormRunRepository) ListStageExecutions(ctx context.Context, runID string) ([]StageExecution, error) {
	var execs []StageExecution
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id asc").
		Find(&execs).Error; err != nil {
		return nil, exception.NewPipelineError(moduleName,
			fmt.Sprintf("failed to list stage executions for run '%s'", runID), err, false, false)
	}
	return execs, nil
}

func (r *gormRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
