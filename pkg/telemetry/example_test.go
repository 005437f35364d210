package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/foremanctl/foremanctl/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "foremanctl"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("engine")

	// Add context fields
	logger = logger.WithRunID("run-123").WithEntity("domains", "example.com")

	// Log at different levels
	logger.Debug("Looking up current entity")
	logger.Info("Entity reconciled")
	logger.Warn("Entity reference is ambiguous")

	// Log with error
	err := fmt.Errorf("network timeout")
	logger.WithError(err).Error("Failed to reach server")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "none"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a run span
	ctx, span := tel.Tracer.StartRunSpan(ctx, "run-789")
	defer span.End()

	// Nested entity span
	_, childSpan := tel.Tracer.StartEntitySpan(ctx, "domains", "example.com", "present")
	defer childSpan.End()

	childSpan.SetAttributes(
		attribute.String("operation", "update"),
	)

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// Record success
	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record run metrics
	tel.Metrics.RecordRunStarted(false)

	// Simulate run execution
	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordRunCompleted("completed", duration)

	// Record reconciliation metrics
	tel.Metrics.RecordReconciliation(
		"domains",           // resource
		"update",            // operation
		"succeeded",         // status
		true,                // changed
		25*time.Millisecond, // duration
	)

	// Record API metrics
	tel.Metrics.RecordAPICall("list", "domains", 15*time.Millisecond, nil)

	// Record error metrics
	tel.Metrics.RecordError("remote", "remote_call_failed")

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_runInstrumentation demonstrates instrumenting a complete run.
func Example_runInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start run context
	ctx = telemetry.WithRunContext(ctx, "run-123", false)

	// Reconcile one entity (simulated)
	reconcileEntity(ctx)

	// End run context
	telemetry.EndRunContext(ctx, "completed", nil)

	fmt.Println("Run instrumentation complete")
	// Output: Run instrumentation complete
}

func reconcileEntity(ctx context.Context) {
	ctx = telemetry.WithEntityContext(ctx, "domains", "example.com", "present")

	// Get logger from context
	logger := telemetry.FromContext(ctx)
	logger.Info("Reconciling entity")

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// End entity context
	telemetry.EndEntityContext(ctx, "domains", "update", "succeeded", true, nil)
}

// Example_apiInstrumentation demonstrates instrumenting server API calls.
func Example_apiInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Record an API operation
	err := telemetry.RecordAPIOperation(ctx, "list", "organizations", func() error {
		// Simulate server round trip
		time.Sleep(15 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("API operation completed successfully")
	}

	// Output: API operation completed successfully
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start instrumented operation
	ic := telemetry.StartOperation(ctx, "manifest.load",
		attribute.String("manifest.path", "/manifests/site.yaml"),
	)
	defer ic.End(nil)

	// Use the instrumented context
	ic.Logger.Info("Loading manifest")

	// Simulate parsing
	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Manifest validated")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	// Customize for your environment
	cfg.ServiceName = "foremanctl"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	// Configure OTLP exporter
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	// Configure metrics
	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "foremanctl"

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_errorRecording demonstrates error recording with proper classification.
func Example_errorRecording() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start a span
	ctx, span := tel.Tracer.Start(ctx, "entity.reconcile")
	defer span.End()

	// Simulate an error
	err := fmt.Errorf("connection timeout")

	if err != nil {
		// Record error on span
		telemetry.RecordError(span, err)

		// Record error metric with classification
		tel.Metrics.RecordError("remote", "remote_call_failed")

		// Log error
		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("Reconciliation failed")
	}

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific loggers
	engineLogger := tel.Logger.NewComponentLogger("engine")
	resolverLogger := tel.Logger.NewComponentLogger("resolver")
	clientLogger := tel.Logger.NewComponentLogger("client")

	engineLogger.Info("Engine initialized")
	resolverLogger.Info("Resolving entity references")
	clientLogger.Info("Connecting to server")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
