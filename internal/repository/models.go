package repository

import (
	"encoding/json"
	"time"
)

// Run statuses.
const (
	RunStatusStarted   = "STARTED"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// PipelineRun is one invocation of the pipeline over a date range.
type PipelineRun struct {
	// ID is the run's UUID, also used as the lake commit id.
	ID           string     `gorm:"primaryKey;size:36"`
	StartDate    string     `gorm:"size:10;not null"`
	EndDate      string     `gorm:"size:10;not null"`
	Status       string     `gorm:"size:16;not null"`
	ErrorMessage string     `gorm:"type:text"`
	StartedAt    time.Time  `gorm:"not null"`
	CompletedAt  *time.Time
}

// TableName overrides the GORM default.
func (PipelineRun) TableName() string { return "pipeline_runs" }

// StageExecution is one stage's processing of one date partition within a run.
type StageExecution struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"`
	RunID        string     `gorm:"size:36;index;not null"`
	Stage        string     `gorm:"size:32;not null"`
	PartitionKey string     `gorm:"size:32;not null"`
	RowsRead     int64      `gorm:"not null"`
	RowsWritten  int64      `gorm:"not null"`
	RowsRejected int64      `gorm:"not null"`
	// ReasonCounts is the rejection reason distribution as a JSON object.
	ReasonCounts string    `gorm:"type:text"`
	Status       string    `gorm:"size:16;not null"`
	ErrorMessage string    `gorm:"type:text"`
	StartedAt    time.Time `gorm:"not null"`
	CompletedAt  *time.Time
}

// TableName overrides the GORM default.
func (StageExecution) TableName() string { return "stage_executions" }

// SetReasonCounts serializes a reason distribution into the row.
func (s *StageExecution) SetReasonCounts(counts map[string]int) error {
	if len(counts) == 0 {
		s.ReasonCounts = ""
		return nil
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	s.ReasonCounts = string(b)
	return nil
}

// GetReasonCounts deserializes the reason distribution from the row.
func (s *StageExecution) GetReasonCounts() (map[string]int, error) {
	if s.ReasonCounts == "" {
		return map[string]int{}, nil
	}
	var counts map[string]int
	if err := json.Unmarshal([]byte(s.ReasonCounts), &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
