package pipeline_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/pipeline"
)

func TestParseDateRange(t *testing.T) {
	dr, err := pipeline.ParseDateRange("2024-01-01", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), dr.End)
}

func TestParseDateRangeSingleDay(t *testing.T) {
	dr, err := pipeline.ParseDateRange("2024-06-15", "2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-15"}, dr.Dates())
}

func TestParseDateRangeRejectsInvertedBounds(t *testing.T) {
	_, err := pipeline.ParseDateRange("2024-01-03", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precedes")
}

func TestParseDateRangeRejectsMalformedDates(t *testing.T) {
	_, err := pipeline.ParseDateRange("01/02/2024", "2024-01-03")
	assert.Error(t, err)

	_, err = pipeline.ParseDateRange("2024-01-01", "not-a-date")
	assert.Error(t, err)
}

func TestDatesEnumeratesRangeAscending(t *testing.T) {
	dr, err := pipeline.ParseDateRange("2024-01-30", "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, dr.Dates())
}

func TestContains(t *testing.T) {
	dr, err := pipeline.ParseDateRange("2024-01-02", "2024-01-04")
	require.NoError(t, err)

	assert.True(t, dr.Contains(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dr.Contains(time.Date(2024, 1, 4, 23, 59, 59, 0, time.UTC)))
	assert.False(t, dr.Contains(time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)))
	assert.False(t, dr.Contains(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
}

func TestRunReportTotals(t *testing.T) {
	report := &pipeline.RunReport{
		Partitions: []pipeline.PartitionReport{
			{
				Date: "2024-01-01",
				Stages: []pipeline.StageCounters{
					{Stage: pipeline.StageCleaning, RowsRejected: 5, ReasonCounts: map[string]int{"negative_fare": 3, "invalid_location": 2}},
					{Stage: pipeline.StageEnrichment, RowsRejected: 1},
				},
			},
			{
				Date: "2024-01-02",
				Stages: []pipeline.StageCounters{
					{Stage: pipeline.StageCleaning, RowsRejected: 2, ReasonCounts: map[string]int{"negative_fare": 2}},
				},
				Err: errors.New("partition failed"),
			},
		},
	}

	assert.Equal(t, int64(8), report.TotalRejected())
	assert.Equal(t, map[string]int{"negative_fare": 5, "invalid_location": 2}, report.ReasonDistribution())
}
