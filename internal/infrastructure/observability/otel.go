package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCount     metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	DBQueryDuration  metric.Float64Histogram
	SelectionCount   metric.Int64Counter
	FallbackCount    metric.Int64Counter
	FeedbackCount    metric.Int64Counter
	SamplingDuration metric.Float64Histogram
}

// Setup initializes OpenTelemetry tracing and metrics export
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up metric exporter
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	// Shutdown function
	shutdown := func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
		return meterProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/aromaiq/recommender-backend")

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dbQueryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	selectionCount, err := meter.Int64Counter(
		"bandit.selection.count",
		metric.WithDescription("Number of algorithm selections"),
	)
	if err != nil {
		return nil, err
	}

	fallbackCount, err := meter.Int64Counter(
		"bandit.selection.fallback.count",
		metric.WithDescription("Number of selections degraded to the fallback arm"),
	)
	if err != nil {
		return nil, err
	}

	feedbackCount, err := meter.Int64Counter(
		"bandit.feedback.count",
		metric.WithDescription("Number of feedback events processed"),
	)
	if err != nil {
		return nil, err
	}

	samplingDuration, err := meter.Float64Histogram(
		"bandit.sampling.duration",
		metric.WithDescription("Posterior sampling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:     requestCount,
		RequestDuration:  requestDuration,
		DBQueryDuration:  dbQueryDuration,
		SelectionCount:   selectionCount,
		FallbackCount:    fallbackCount,
		FeedbackCount:    feedbackCount,
		SamplingDuration: samplingDuration,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/aromaiq/recommender-backend")
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request metric with attributes
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDBMetric records a database operation metric
func RecordDBMetric(ctx context.Context, metrics *Metrics, operation string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
	}
	metrics.DBQueryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordSelection counts one algorithm selection
func RecordSelection(ctx context.Context, metrics *Metrics, algorithm string, exploration, fallback bool) {
	attrs := []attribute.KeyValue{
		attribute.String("bandit.algorithm", algorithm),
		attribute.Bool("bandit.exploration", exploration),
	}
	metrics.SelectionCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if fallback {
		metrics.FallbackCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordSamplingDuration records how long the posterior draws of one
// selection took. Sub-millisecond durations are the norm, so the value is
// recorded with nanosecond precision.
func RecordSamplingDuration(ctx context.Context, metrics *Metrics, algorithm string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("bandit.algorithm", algorithm),
	}
	metrics.SamplingDuration.Record(ctx, float64(duration.Nanoseconds())/1e6, metric.WithAttributes(attrs...))
}

// RecordFeedback counts one processed feedback event
func RecordFeedback(ctx context.Context, metrics *Metrics, action string, failed bool) {
	attrs := []attribute.KeyValue{
		attribute.String("bandit.action", action),
		attribute.Bool("bandit.failed", failed),
	}
	metrics.FeedbackCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}
