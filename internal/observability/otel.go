// Package observability wires OpenTelemetry tracing and metrics for the
// analyze, optimize and apply pipelines. When disabled it degrades to
// no-op tracers and nil-safe metric recorders so callers never branch.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"resumatch/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Metrics holds the custom instruments recorded by the pipelines and
// the HTTP server.
type Metrics struct {
	// AI line-edit provider metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Pipeline metrics
	ResumesAnalyzed    metric.Int64Counter
	ProposalsGenerated metric.Int64Counter
	EditsApplied       metric.Int64Counter

	// Server infrastructure metrics
	CertReloadCount metric.Int64Counter
	RateLimitHits   metric.Int64Counter
}

// Manager owns the tracer and meter providers and their shutdown.
type Manager struct {
	cfg            config.ObservabilityConfig
	serviceVersion string
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewManager builds the OpenTelemetry stack from configuration. The
// version parameter is used when cfg.ServiceVersion is empty.
func NewManager(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version
	}

	m := &Manager{cfg: cfg, serviceVersion: cfg.ServiceVersion}
	if !cfg.Enabled {
		return m, nil
	}

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.cfg.ServiceName),
			semconv.ServiceVersion(m.cfg.ServiceVersion),
			attribute.String("service.instance.id", m.serviceInstanceID()),
		),
	)
}

func (m *Manager) serviceInstanceID() string {
	if m.cfg.ServiceInstance != "" {
		return m.cfg.ServiceInstance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return m.cfg.ServiceName + "-1"
	}
	return host
}

func (m *Manager) initTracing() error {
	if !m.cfg.Tracing.Enabled {
		return nil
	}

	var exporter trace.SpanExporter
	var err error
	switch {
	case m.cfg.Console.Enabled:
		opts := []stdouttrace.Option{}
		if m.cfg.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.cfg.OTLP.Enabled:
		exporter, err = m.newOTLPTraceExporter()
	default:
		exporter = dropSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := m.newResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	sampleRate := m.cfg.Tracing.SampleRate
	if sampleRate <= 0 {
		sampleRate = m.cfg.SampleRate
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(sampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics() error {
	if !m.cfg.Metrics.Enabled {
		return nil
	}

	readers, err := m.metricReaders()
	if err != nil {
		return err
	}

	res, err := m.newResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	return m.initCustomMetrics()
}

func (m *Manager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if m.cfg.Console.Enabled {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(m.collectionInterval())))
	}

	if m.cfg.OTLP.Enabled {
		reader, err := m.newOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if m.cfg.Prometheus.Enabled {
		reader, err := m.startPrometheus()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		readers = append(readers, reader)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (m *Manager) collectionInterval() time.Duration {
	if m.cfg.Metrics.CollectionInterval > 0 {
		return m.cfg.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

func (m *Manager) initCustomMetrics() error {
	meter := m.meterProvider.Meter(m.cfg.ServiceName)
	m.metrics = &Metrics{}

	instruments := []struct {
		create func(metric.Meter) error
		name   string
	}{
		{m.createAIMetrics, "ai"},
		{m.createPipelineMetrics, "pipeline"},
		{m.createServerMetrics, "server"},
	}
	for _, in := range instruments {
		if err := in.create(meter); err != nil {
			return fmt.Errorf("failed to create %s metrics: %w", in.name, err)
		}
	}
	return nil
}

func (m *Manager) createAIMetrics(meter metric.Meter) error {
	var err error

	m.metrics.AIProcessingTime, err = meter.Float64Histogram(
		"resumatch_ai_processing_duration_seconds",
		metric.WithDescription("Time spent waiting on the AI line-edit provider"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.metrics.AIRequestCount, err = meter.Int64Counter(
		"resumatch_ai_requests_total",
		metric.WithDescription("Total number of AI line-edit requests"),
	)
	if err != nil {
		return err
	}

	m.metrics.AIErrorCount, err = meter.Int64Counter(
		"resumatch_ai_errors_total",
		metric.WithDescription("Total number of failed AI line-edit requests"),
	)
	if err != nil {
		return err
	}

	m.metrics.AITokenUsage, err = meter.Int64Histogram(
		"resumatch_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	return err
}

func (m *Manager) createPipelineMetrics(meter metric.Meter) error {
	var err error

	m.metrics.ResumesAnalyzed, err = meter.Int64Counter(
		"resumatch_resumes_analyzed_total",
		metric.WithDescription("Total number of resume-versus-job analyses"),
	)
	if err != nil {
		return err
	}

	m.metrics.ProposalsGenerated, err = meter.Int64Counter(
		"resumatch_proposals_generated_total",
		metric.WithDescription("Total number of edit proposals generated"),
	)
	if err != nil {
		return err
	}

	m.metrics.EditsApplied, err = meter.Int64Counter(
		"resumatch_edits_applied_total",
		metric.WithDescription("Total number of accepted proposals applied to drafts"),
	)
	return err
}

func (m *Manager) createServerMetrics(meter metric.Meter) error {
	var err error

	m.metrics.CertReloadCount, err = meter.Int64Counter(
		"resumatch_cert_reloads_total",
		metric.WithDescription("Total number of TLS certificate reloads"),
	)
	if err != nil {
		return err
	}

	m.metrics.RateLimitHits, err = meter.Int64Counter(
		"resumatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	)
	return err
}

// GetMetrics never returns nil so callers can record unconditionally.
func (m *Manager) GetMetrics() *Metrics {
	if m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// HTTPMiddleware returns otelhttp instrumentation, or a pass-through
// when observability is disabled.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.cfg.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.cfg.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the named component.
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.cfg.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops all exporters.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TokenUsage carries provider-reported token counts for one request.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// AIOperationResult is returned by instrumented AI calls.
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TrackAIOperation wraps an AI provider call with a span, duration and
// token-usage metrics.
func (mt *Metrics) TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if mt.AIProcessingTime == nil {
		result := fn(ctx)
		if result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("resumatch.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	mt.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	mt.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		mt.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	mt.recordTokenUsage(ctx, result, attrs, span)
	span.SetAttributes(attrs...)

	return err
}

func (mt *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || mt.AITokenUsage == nil {
		return
	}

	usage := result.TokenUsage
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...),
			attribute.String("token_type", tt.tokenType))
		mt.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// Pipeline operation names used with RecordOperation.
const (
	OpAnalyze  = "analyze"
	OpOptimize = "optimize"
	OpApply    = "apply"
)

// RecordOperation bumps the counter for one pipeline operation.
func (mt *Metrics) RecordOperation(ctx context.Context, operation string, success bool, attributes ...attribute.KeyValue) {
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)

	var counter metric.Int64Counter
	switch operation {
	case OpAnalyze:
		counter = mt.ResumesAnalyzed
	case OpOptimize:
		counter = mt.ProposalsGenerated
	case OpApply:
		counter = mt.EditsApplied
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCertReload bumps the TLS certificate reload counter.
func (mt *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if mt.CertReloadCount != nil {
		mt.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// RecordRateLimitHit bumps the rate limit counter.
func (mt *Metrics) RecordRateLimitHit(ctx context.Context, limitedBy string) {
	if mt.RateLimitHits != nil {
		mt.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limited_by", limitedBy)))
	}
}

// dropSpanExporter discards spans when no exporter is configured.
type dropSpanExporter struct{}

func (dropSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (dropSpanExporter) Shutdown(context.Context) error                          { return nil }

func (m *Manager) newOTLPTraceExporter() (trace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(m.cfg.OTLP.Endpoint),
	}
	if m.cfg.OTLP.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(m.cfg.OTLP.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.cfg.OTLP.Headers))
	}
	return otlptracehttp.New(context.Background(), opts...)
}

func (m *Manager) newOTLPMetricsReader() (sdkmetric.Reader, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(m.cfg.OTLP.Endpoint),
	}
	if m.cfg.OTLP.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(m.cfg.OTLP.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(m.cfg.OTLP.Headers))
	}
	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(m.collectionInterval())), nil
}
