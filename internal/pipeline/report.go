// Package pipeline orchestrates one run: ingestion of the raw sources,
// per-date stage sequencing through the lake tiers, and the run report.
package pipeline

import (
	"fmt"
	"time"
)

// DateRange is the inclusive range of pickup dates a run covers.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses "YYYY-MM-DD" bounds into a DateRange.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation("2006-01-02", start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date '%s': %w", start, err)
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date '%s': %w", end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date '%s' precedes start date '%s'", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Dates enumerates the partition keys of the range in ascending order.
func (r DateRange) Dates() []string {
	var dates []string
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}

// Contains reports whether a timestamp's date falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := t.UTC().Truncate(24 * time.Hour)
	return !d.Before(r.Start) && !d.After(r.End)
}

// StageCounters holds the observable outcome of one stage execution for one
// date partition.
type StageCounters struct {
	Stage        string
	PartitionKey string
	RowsRead     int64
	RowsWritten  int64
	RowsRejected int64
	// ReasonCounts is filled by the cleaning stage only.
	ReasonCounts map[string]int
	Duration     time.Duration
}

// PartitionReport aggregates one date partition's journey through the stages.
type PartitionReport struct {
	Date   string
	Stages []StageCounters
	// Err is set when the partition failed; later stages are then absent.
	Err error
}

// RunReport is the account of one pipeline run handed back to the caller.
type RunReport struct {
	RunID      string
	StartDate  string
	EndDate    string
	StartedAt  time.Time
	FinishedAt time.Time
	// Partitions are ordered by date.
	Partitions []PartitionReport
	// Failed counts partitions that did not complete.
	Failed int
}

// TotalRejected sums the rejected rows across all partitions and stages.
func (r *RunReport) TotalRejected() int64 {
	var n int64
	for _, p := range r.Partitions {
		for _, s := range p.Stages {
			n += s.RowsRejected
		}
	}
	return n
}

// ReasonDistribution merges the cleaning reason counts across partitions.
func (r *RunReport) ReasonDistribution() map[string]int {
	out := make(map[string]int)
	for _, p := range r.Partitions {
		for _, s := range p.Stages {
			for reason, n := range s.ReasonCounts {
				out[reason] += n
			}
		}
	}
	return out
}
