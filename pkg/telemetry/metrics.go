package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for foremanctl.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Reconciliation metrics
	reconciliations        *prometheus.CounterVec
	reconciliationChanged  *prometheus.CounterVec
	reconciliationDuration *prometheus.HistogramVec

	// API metrics
	apiCalls    *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	apiErrors   *prometheus.CounterVec

	// Resolution metrics
	resolutionFailures *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// System metrics
	activeRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Run metrics
		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of reconciliation runs started",
			},
			[]string{"dry_run"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of reconciliation runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of reconciliation runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		// Reconciliation metrics
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of entity reconciliations",
			},
			[]string{"resource", "operation", "status"},
		),
		reconciliationChanged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_changed_total",
				Help:      "Total number of reconciliations that reported a change",
			},
			[]string{"resource", "operation"},
		),
		reconciliationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciliation_duration_seconds",
				Help:      "Duration of entity reconciliations in seconds",
				Buckets:   buckets,
			},
			[]string{"resource", "operation"},
		),

		// API metrics
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_calls_total",
				Help:      "Total number of server API calls",
			},
			[]string{"method", "resource"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_call_duration_seconds",
				Help:      "Duration of server API calls in seconds",
				Buckets:   buckets,
			},
			[]string{"method", "resource"},
		),
		apiErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of failed server API calls",
			},
			[]string{"method", "resource"},
		),

		// Resolution metrics
		resolutionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolution_failures_total",
				Help:      "Total number of failed entity reference lookups",
			},
			[]string{"resource"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		// System metrics
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active reconciliation runs",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.reconciliations,
		m.reconciliationChanged,
		m.reconciliationDuration,
		m.apiCalls,
		m.apiDuration,
		m.apiErrors,
		m.resolutionFailures,
		m.errorsByClass,
		m.errorsByCode,
		m.activeRuns,
	)

	return m, nil
}

// Run Metrics

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted(dryRun bool) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(boolLabel(dryRun)).Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// Reconciliation Metrics

// RecordReconciliation records the outcome of a single entity reconciliation.
func (m *Metrics) RecordReconciliation(resource, operation, status string, changed bool, duration time.Duration) {
	if m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(resource, operation, status).Inc()
	if changed {
		m.reconciliationChanged.WithLabelValues(resource, operation).Inc()
	}
	m.reconciliationDuration.WithLabelValues(resource, operation).Observe(duration.Seconds())
}

// API Metrics

// RecordAPICall records a server API call with its duration.
func (m *Metrics) RecordAPICall(method, resource string, duration time.Duration, err error) {
	if m.apiCalls == nil {
		return
	}
	m.apiCalls.WithLabelValues(method, resource).Inc()
	m.apiDuration.WithLabelValues(method, resource).Observe(duration.Seconds())
	if err != nil {
		m.apiErrors.WithLabelValues(method, resource).Inc()
	}
}

// APIObserver returns an observer function suitable for the API client,
// feeding every call into the api_* metrics.
func (m *Metrics) APIObserver() func(method, resource string, duration time.Duration, err error) {
	return m.RecordAPICall
}

// Resolution Metrics

// RecordResolutionFailure records a failed entity reference lookup.
func (m *Metrics) RecordResolutionFailure(resource string) {
	if m.resolutionFailures == nil {
		return
	}
	m.resolutionFailures.WithLabelValues(resource).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// System Metrics

// SetActiveRuns sets the current number of active runs.
func (m *Metrics) SetActiveRuns(count float64) {
	if m.activeRuns == nil {
		return
	}
	m.activeRuns.Set(count)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
