package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/repository"
)

// newMockRepository wires go-sqlmock behind a GORM postgres dialector so
// repository methods can be exercised without a real database. The default
// per-statement transaction is skipped to keep expectations down to the
// statements the repository itself issues.
func newMockRepository(t *testing.T) (repository.RunRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	repo := repository.NewRunRepositoryWithDB(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mock
}

func TestCreateRun(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "pipeline_runs"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &repository.PipelineRun{
		ID:        "run-0001",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
	}
	err := repo.CreateRun(context.Background(), run)
	require.NoError(t, err)

	// The repository fills in the initial state before inserting.
	assert.Equal(t, repository.RunStatusStarted, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRunPropagatesInsertFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO "pipeline_runs"`).
		WillReturnError(errors.New("connection refused"))

	err := repo.CreateRun(context.Background(), &repository.PipelineRun{ID: "run-0002"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-0002")
}

func TestCompleteRun(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "pipeline_runs" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CompleteRun(context.Background(), "run-0003", repository.RunStatusCompleted, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunUnknownID(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "pipeline_runs" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CompleteRun(context.Background(), "no-such-run", repository.RunStatusFailed, "boom")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestSaveStageExecution(t *testing.T) {
	repo, mock := newMockRepository(t)

	// The autoincrement primary key makes GORM issue the insert with a
	// RETURNING clause on postgres.
	mock.ExpectQuery(`INSERT INTO "stage_executions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	exec := &repository.StageExecution{
		RunID:        "run-0004",
		Stage:        "cleaning",
		PartitionKey: "date=2024-01-15",
		RowsRead:     1000,
		RowsWritten:  950,
		RowsRejected: 50,
		Status:       repository.RunStatusCompleted,
		StartedAt:    time.Now().UTC(),
	}
	require.NoError(t, exec.SetReasonCounts(map[string]int{"negative_fare": 50}))

	err := repo.SaveStageExecution(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, uint(7), exec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRun(t *testing.T) {
	repo, mock := newMockRepository(t)

	started := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "start_date", "end_date", "status", "error_message", "started_at", "completed_at"}).
		AddRow("run-0005", "2024-01-01", "2024-01-31", repository.RunStatusCompleted, "", started, nil)
	mock.ExpectQuery(`SELECT \* FROM "pipeline_runs" WHERE id = .+`).
		WillReturnRows(rows)

	run, err := repo.FindRun(context.Background(), "run-0005")
	require.NoError(t, err)
	assert.Equal(t, "run-0005", run.ID)
	assert.Equal(t, "2024-01-31", run.EndDate)
	assert.Equal(t, repository.RunStatusCompleted, run.Status)
	assert.Nil(t, run.CompletedAt)
}

func TestListStageExecutions(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "run_id", "stage", "partition_key", "rows_read", "rows_written", "rows_rejected", "reason_counts", "status", "error_message", "started_at", "completed_at"}).
		AddRow(1, "run-0006", "bronze", "date=2024-01-01", 100, 100, 0, "", repository.RunStatusCompleted, "", time.Now(), nil).
		AddRow(2, "run-0006", "cleaning", "date=2024-01-01", 100, 90, 10, `{"negative_fare":10}`, repository.RunStatusCompleted, "", time.Now(), nil)
	mock.ExpectQuery(`SELECT \* FROM "stage_executions" WHERE run_id = .+ ORDER BY id asc`).
		WillReturnRows(rows)

	execs, err := repo.ListStageExecutions(context.Background(), "run-0006")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, "bronze", execs[0].Stage)
	assert.Equal(t, "cleaning", execs[1].Stage)

	counts, err := execs[1].GetReasonCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"negative_fare": 10}, counts)
}

func TestReasonCountsRoundTrip(t *testing.T) {
	exec := &repository.StageExecution{}

	require.NoError(t, exec.SetReasonCounts(map[string]int{
		"implausible_duration": 3,
		"invalid_location":     1,
	}))
	counts, err := exec.GetReasonCounts()
	require.NoError(t, err)
	assert.Equal(t, 3, counts["implausible_duration"])
	assert.Equal(t, 1, counts["invalid_location"])

	// No serialized payload means no counts, not an error.
	empty := &repository.StageExecution{}
	counts, err = empty.GetReasonCounts()
	require.NoError(t, err)
	assert.Empty(t, counts)
}
