// Package exception provides the error types and classification helpers used
// across the pipeline. Errors are categorized along two axes: whether the
// failed work can be retried safely (partition commits are atomic, so a
// retry never duplicates visible state), and whether the offending record
// can be skipped while the rest of the batch proceeds.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors for the pipeline error taxonomy. Stage code wraps these so
// callers can classify failures with errors.Is regardless of how deeply they
// are nested.
var (
	// ErrSchemaViolation indicates a raw batch failed the declared column
	// contract. Fatal for the batch: no partial admission. Per-record
	// conditions (lookup misses, outlier drops) are counted, not raised,
	// so they carry no sentinel.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrPartitionCommitFailure indicates a partition write failed before
	// its manifest was committed. Fatal for that partition, retryable.
	ErrPartitionCommitFailure = errors.New("partition commit failure")
)

// PipelineError is the error type raised by pipeline components.
// It holds the module where the error occurred, a message, the wrapped
// original error, and flags indicating whether it is retryable or skippable.
type PipelineError struct {
	// Module indicates the component where the error occurred
	// (e.g., "schema", "cleaning", "enrichment", "lake", "repository").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether the failed operation may be re-attempted.
	isRetryable bool
	// isSkippable indicates whether the offending record may be skipped.
	isSkippable bool
	// StackTrace is the stack trace captured at construction (for debugging).
	StackTrace string
}

// NewPipelineError creates a new PipelineError instance.
// module: The component where the error occurred.
// message: The error message.
// originalErr: The original error to wrap (may be nil).
// isSkippable: Whether the offending record may be skipped.
// isRetryable: Whether the failed operation may be re-attempted.
func NewPipelineError(module, message string, originalErr error, isSkippable, isRetryable bool) *PipelineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// NewSchemaViolation creates a fatal PipelineError wrapping ErrSchemaViolation.
// field identifies the offending column and rows the number of records in the
// rejected batch.
func NewSchemaViolation(module, field string, rows int, originalErr error) *PipelineError {
	msg := fmt.Sprintf("schema violation on field '%s' (%d rows rejected)", field, rows)
	wrapped := ErrSchemaViolation
	if originalErr != nil {
		wrapped = errors.Join(ErrSchemaViolation, originalErr)
	}
	return NewPipelineError(module, msg, wrapped, false, false)
}

// NewPartitionCommitFailure creates a retryable PipelineError wrapping
// ErrPartitionCommitFailure for the given table and partition key.
func NewPartitionCommitFailure(module, table, partitionKey string, originalErr error) *PipelineError {
	msg := fmt.Sprintf("failed to commit partition '%s' of table '%s'", partitionKey, table)
	wrapped := ErrPartitionCommitFailure
	if originalErr != nil {
		wrapped = errors.Join(ErrPartitionCommitFailure, originalErr)
	}
	return NewPipelineError(module, msg, wrapped, false, true)
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *PipelineError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *PipelineError) IsSkippable() bool {
	return e.isSkippable
}

// IsTemporary determines if an error is temporary and worth retrying.
// The IsRetryable flag of a PipelineError takes precedence; otherwise a
// handful of well-known transient failure signatures are matched.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// IsFatal determines if an error is fatal (neither retryable nor skippable).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return !pe.IsRetryable() && !pe.IsSkippable()
	}
	return errors.Is(err, ErrSchemaViolation)
}

// ExtractErrorMessage extracts the error message string from an error.
// For PipelineError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
