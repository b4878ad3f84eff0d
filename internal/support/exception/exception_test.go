package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/exception"
)

func TestNewPipelineError(t *testing.T) {
	original := errors.New("disk full")
	err := exception.NewPipelineError("lake", "failed to write data file", original, false, true)

	assert.Equal(t, "lake", err.Module)
	assert.Equal(t, "failed to write data file", err.Message)
	assert.Equal(t, original, err.OriginalErr)
	assert.True(t, err.IsRetryable())
	assert.False(t, err.IsSkippable())
	assert.NotEmpty(t, err.StackTrace)
	assert.Equal(t, "[lake] failed to write data file: disk full", err.Error())
}

func TestErrorWithoutOriginal(t *testing.T) {
	err := exception.NewPipelineError("config", "missing storage ref", nil, false, false)
	assert.Equal(t, "[config] missing storage ref", err.Error())
}

func TestUnwrapSupportsErrorsIs(t *testing.T) {
	original := errors.New("root cause")
	err := exception.NewPipelineError("pipeline", "stage failed", original, false, false)

	assert.True(t, errors.Is(err, original))
	assert.Equal(t, original, errors.Unwrap(err))
}

func TestNewSchemaViolation(t *testing.T) {
	err := exception.NewSchemaViolation("schema", "fare_amount", 12, errors.New("null in required column"))

	assert.True(t, errors.Is(err, exception.ErrSchemaViolation))
	assert.Contains(t, err.Error(), "fare_amount")
	assert.Contains(t, err.Error(), "12 rows rejected")
	assert.False(t, err.IsRetryable())
	assert.False(t, err.IsSkippable())

	// The sentinel alone is enough for classification when no cause exists.
	bare := exception.NewSchemaViolation("schema", "vendor_id", 1, nil)
	assert.True(t, errors.Is(bare, exception.ErrSchemaViolation))
}

func TestNewSchemaViolationThroughWrapping(t *testing.T) {
	// Stage code wraps the violation with its own context; classification
	// must still work through the chain.
	inner := exception.NewSchemaViolation("schema", "tpep_pickup_datetime", 3, nil)
	outer := fmt.Errorf("raw trip file 'raw/trips/2024-01.parquet' rejected: %w", inner)

	assert.True(t, errors.Is(outer, exception.ErrSchemaViolation))
	assert.True(t, exception.IsFatal(outer))
}

func TestNewPartitionCommitFailure(t *testing.T) {
	err := exception.NewPartitionCommitFailure("lake", "bronze_trips", "date=2024-01-15", errors.New("upload interrupted"))

	assert.True(t, errors.Is(err, exception.ErrPartitionCommitFailure))
	assert.Contains(t, err.Error(), "date=2024-01-15")
	assert.Contains(t, err.Error(), "bronze_trips")
	assert.True(t, err.IsRetryable())
	assert.False(t, exception.IsFatal(err))
}

func TestIsTemporary(t *testing.T) {
	retryable := exception.NewPipelineError("lake", "commit failed", nil, false, true)
	fatal := exception.NewPipelineError("schema", "contract violated", nil, false, false)

	assert.True(t, exception.IsTemporary(retryable))
	assert.False(t, exception.IsTemporary(fatal))

	// Non-pipeline errors fall back to transient signature matching.
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: i/o timeout")))
	assert.True(t, exception.IsTemporary(errors.New("connection refused")))
	assert.False(t, exception.IsTemporary(errors.New("permission denied")))
	assert.False(t, exception.IsTemporary(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, exception.IsFatal(exception.NewPipelineError("schema", "bad batch", nil, false, false)))
	assert.False(t, exception.IsFatal(exception.NewPipelineError("cleaning", "record dropped", nil, true, false)))
	assert.False(t, exception.IsFatal(exception.NewPipelineError("lake", "commit failed", nil, false, true)))

	// Plain errors are fatal only when they carry the schema sentinel.
	assert.True(t, exception.IsFatal(fmt.Errorf("load: %w", exception.ErrSchemaViolation)))
	assert.False(t, exception.IsFatal(errors.New("anything else")))
	assert.False(t, exception.IsFatal(nil))
}

func TestExtractErrorMessage(t *testing.T) {
	pe := exception.NewPipelineError("pipeline", "partition aborted", errors.New("context canceled"), false, false)

	assert.Equal(t, "partition aborted", exception.ExtractErrorMessage(pe))
	assert.Equal(t, "partition aborted", exception.ExtractErrorMessage(fmt.Errorf("outer: %w", pe)))
	assert.Equal(t, "plain failure", exception.ExtractErrorMessage(errors.New("plain failure")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}
