// Package metrics records per-stage pipeline counters. The Recorder interface
// decouples the stages from the exposition backend; a Prometheus-backed
// recorder and a no-op recorder are provided, selected by configuration.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/support/logger"
)

// Recorder receives the pipeline's observable events. Implementations must
// be safe for concurrent use across partition workers.
type Recorder interface {
	// RecordRead counts rows read by a stage.
	RecordRead(stage string, n int)
	// RecordWritten counts rows written by a stage.
	RecordWritten(stage string, n int)
	// RecordRejected counts rows rejected by a stage with a reason label.
	RecordRejected(stage, reason string, n int)
	// RecordStageDuration observes the wall time of one stage execution.
	RecordStageDuration(stage string, d time.Duration)
	// RecordRunCompleted counts finished runs by terminal status.
	RecordRunCompleted(status string)
}

// NoopRecorder discards every event. It is used when metrics are disabled
// and as a safe default in tests.
type NoopRecorder struct{}

func (NoopRecorder) RecordRead(string, int) {}

func (NoopRecorder) RecordWritten(string, int) {}

func (NoopRecorder) RecordRejected(string, string, int) {}

func (NoopRecorder) RecordStageDuration(string, time.Duration) {}

func (NoopRecorder) RecordRunCompleted(string) {}

// PrometheusRecorder exposes the pipeline counters as Prometheus metrics on
// its own registry.
type PrometheusRecorder struct {
	registry      *prometheus.Registry
	rowsRead      *prometheus.CounterVec
	rowsWritten   *prometheus.CounterVec
	rowsRejected  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsCompleted *prometheus.CounterVec
}

// NewPrometheusRecorder builds a recorder with all collectors registered on
// a dedicated registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		rowsRead: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_rows_read_total",
			Help: "Rows read by each pipeline stage.",
		}, []string{"stage"}),
		rowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_rows_written_total",
			Help: "Rows written by each pipeline stage.",
		}, []string{"stage"}),
		rowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_rows_rejected_total",
			Help: "Rows rejected by each pipeline stage, labeled by reason.",
		}, []string{"stage", "reason"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Wall time of one stage execution for one partition.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		runsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_completed_total",
			Help: "Finished pipeline runs by terminal status.",
		}, []string{"status"}),
	}
}

func (r *PrometheusRecorder) RecordRead(stage string, n int) {
	r.rowsRead.WithLabelValues(stage).Add(float64(n))
}

func (r *PrometheusRecorder) RecordWritten(stage string, n int) {
	r.rowsWritten.WithLabelValues(stage).Add(float64(n))
}

func (r *PrometheusRecorder) RecordRejected(stage, reason string, n int) {
	r.rowsRejected.WithLabelValues(stage, reason).Add(float64(n))
}

func (r *PrometheusRecorder) RecordStageDuration(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *PrometheusRecorder) RecordRunCompleted(status string) {
	r.runsCompleted.WithLabelValues(status).Inc()
}

// Handler returns an HTTP handler serving the recorder's registry in the
// Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server serves a PrometheusRecorder on /metrics.
type Server struct {
	srv *http.Server
}

// NewServer builds the exposition server; Start must be called to listen.
func NewServer(addr string, rec *PrometheusRecorder) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	return &Server{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		logger.Infof("Metrics endpoint listening on %s.", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()
}

// Stop shuts the exposition server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
