package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lamim/nlpforge/pkg/models"
)

var (
	// API metrics
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlpforge_api_request_duration_seconds",
			Help:    "Service request duration in seconds by endpoint",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"endpoint", "status"},
	)

	rateLimiterWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlpforge_rate_limiter_wait_duration_seconds",
			Help:    "Rate limiter wait duration in seconds by endpoint",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"endpoint"},
	)

	// Poller metrics
	pollTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlpforge_poll_total",
			Help: "Total number of poll cycles",
		},
		[]string{"poller", "status"}, // poller: "status"/"registry", status: "success"/"error"/"discarded"
	)

	// Training metrics
	trainingStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlpforge_training_starts_total",
			Help: "Total number of start-training submissions",
		},
		[]string{"status"},
	)

	trainingProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nlpforge_training_progress_percent",
			Help: "Progress of the job currently being watched",
		},
	)

	registryJobs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nlpforge_registry_jobs",
			Help: "Job counts reported by the service registry",
		},
		[]string{"state"},
	)
)

// Poller names used as label values
const (
	PollerStatus   = "status"
	PollerRegistry = "registry"
)

// Collector provides convenience methods for recording metrics
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a new metrics collector
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// RecordAPIRequest records a service request duration
func (c *Collector) RecordAPIRequest(endpoint string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	apiRequestDuration.WithLabelValues(endpoint, statusLabel(success)).Observe(duration.Seconds())
}

// RecordRateLimiterWait records rate limiter wait time
func (c *Collector) RecordRateLimiterWait(endpoint string, duration time.Duration) {
	if c == nil {
		return
	}
	rateLimiterWaitDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// IncrementPoll counts one poll cycle
func (c *Collector) IncrementPoll(poller string, success bool) {
	if c == nil {
		return
	}
	pollTotal.WithLabelValues(poller, statusLabel(success)).Inc()
}

// IncrementPollDiscarded counts a result dropped because its poller was stopped
func (c *Collector) IncrementPollDiscarded(poller string) {
	if c == nil {
		return
	}
	pollTotal.WithLabelValues(poller, "discarded").Inc()
}

// IncrementTrainingStart counts a start-training submission
func (c *Collector) IncrementTrainingStart(success bool) {
	if c == nil {
		return
	}
	trainingStarts.WithLabelValues(statusLabel(success)).Inc()
}

// SetTrainingProgress records the watched job's progress
func (c *Collector) SetTrainingProgress(job models.TrainingJob) {
	if c == nil {
		return
	}
	trainingProgress.Set(float64(job.Progress))
}

// SetRegistry records the latest registry counts
func (c *Collector) SetRegistry(snap models.RegistrySnapshot) {
	if c == nil {
		return
	}
	registryJobs.WithLabelValues("total").Set(float64(snap.Total))
	registryJobs.WithLabelValues("running").Set(float64(snap.Running))
	registryJobs.WithLabelValues("completed").Set(float64(snap.Completed))
	registryJobs.WithLabelValues("failed").Set(float64(snap.Failed))
	registryJobs.WithLabelValues("stopped").Set(float64(snap.Stopped))
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
