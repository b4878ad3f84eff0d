package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/metrics"
)

// The collectors live on the recorder's private registry, so assertions go
// through the exposition output.
func TestPrometheusRecorderExposition(t *testing.T) {
	rec := metrics.NewPrometheusRecorder()

	rec.RecordRead("cleaning", 100)
	rec.RecordRead("cleaning", 50)
	rec.RecordWritten("cleaning", 140)
	rec.RecordRejected("cleaning", "NEGATIVE_FARE", 7)
	rec.RecordRejected("cleaning", "INVALID_LOCATION", 3)
	rec.RecordStageDuration("cleaning", 250*time.Millisecond)
	rec.RecordRunCompleted("COMPLETED")

	body := scrape(t, rec)
	assert.Contains(t, body, `pipeline_rows_read_total{stage="cleaning"} 150`)
	assert.Contains(t, body, `pipeline_rows_written_total{stage="cleaning"} 140`)
	assert.Contains(t, body, `pipeline_rows_rejected_total{reason="NEGATIVE_FARE",stage="cleaning"} 7`)
	assert.Contains(t, body, `pipeline_rows_rejected_total{reason="INVALID_LOCATION",stage="cleaning"} 3`)
	assert.Contains(t, body, `pipeline_stage_duration_seconds_count{stage="cleaning"} 1`)
	assert.Contains(t, body, `pipeline_runs_completed_total{status="COMPLETED"} 1`)
}

func TestRecordersAreIsolated(t *testing.T) {
	a := metrics.NewPrometheusRecorder()
	b := metrics.NewPrometheusRecorder()

	a.RecordRead("bronze", 10)

	assert.Contains(t, scrape(t, a), `pipeline_rows_read_total{stage="bronze"} 10`)
	assert.NotContains(t, scrape(t, b), `stage="bronze"`)
}

func scrape(t *testing.T, rec *metrics.PrometheusRecorder) string {
	t.Helper()
	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
