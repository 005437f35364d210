// Package telemetry provides observability instrumentation for foremanctl.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), and metrics (Prometheus) into a unified system for
// monitoring and debugging reconciliation runs.
//
// # Architecture
//
// The telemetry system is built on three pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "foremanctl"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger = logger.WithRunID("run-123").WithEntity("domains", "example.com")
//	logger.Info("Reconciling entity")
//	logger.WithError(err).Error("Reconciliation failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into run flow and performance:
//
//	ctx, span := tel.Tracer.StartEntitySpan(ctx, "domains", "example.com", "present")
//	defer span.End()
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development)
//
// # Metrics
//
// Prometheus metrics track system behavior and performance:
//
//	tel.Metrics.RecordRunStarted(false)
//	tel.Metrics.RecordRunCompleted("completed", duration)
//	tel.Metrics.RecordReconciliation("domains", "update", "succeeded", true, duration)
//	tel.Metrics.RecordError("remote", "remote_call_failed")
//
// The API client accepts tel.Metrics.APIObserver() so every server call is
// counted and timed without the client importing this package.
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	ctx = telemetry.WithRunContext(ctx, runID, dryRun)
//	defer telemetry.EndRunContext(ctx, status, err)
//
//	ctx = telemetry.WithEntityContext(ctx, resource, name, state)
//	defer telemetry.EndEntityContext(ctx, resource, operation, status, changed, err)
//
// # Key Metrics
//
//   - foremanctl_runs_started_total{dry_run}
//   - foremanctl_runs_completed_total{status}
//   - foremanctl_run_duration_seconds{status}
//   - foremanctl_reconciliations_total{resource,operation,status}
//   - foremanctl_reconciliations_changed_total{resource,operation}
//   - foremanctl_api_calls_total{method,resource}
//   - foremanctl_api_call_duration_seconds{method,resource}
//   - foremanctl_resolution_failures_total{resource}
//   - foremanctl_errors_by_class_total{class}
//   - foremanctl_active_runs
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending traces:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
package telemetry
