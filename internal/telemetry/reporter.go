package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🚨 异常上报
// =============================================================================

// ExceptionReporter 接收请求处理过程中被吞掉的错误。
// 实现必须是并发安全的，且不能 panic。
type ExceptionReporter interface {
	ReportException(ctx context.Context, err error, attrs ...attribute.KeyValue)
}

// ReporterFunc adapts a function to ExceptionReporter.
type ReporterFunc func(ctx context.Context, err error, attrs ...attribute.KeyValue)

// ReportException implements ExceptionReporter.
func (f ReporterFunc) ReportException(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	f(ctx, err, attrs...)
}

// NopReporter discards every report.
type NopReporter struct{}

// ReportException implements ExceptionReporter.
func (NopReporter) ReportException(context.Context, error, ...attribute.KeyValue) {}

// counterKeys 是计数器允许携带的属性；request_id 等高基数属性只进 span 和日志
var counterKeys = map[attribute.Key]bool{
	"verb":  true,
	"route": true,
}

func counterAttrs(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(counterKeys))
	for _, kv := range attrs {
		if counterKeys[kv.Key] {
			out = append(out, kv)
		}
	}
	return out
}

// Reporter records exceptions on the active span, counts them on an otel
// counter and logs them.
type Reporter struct {
	logger  *zap.Logger
	counter metric.Int64Counter
}

// ReporterOption configures a Reporter.
type ReporterOption func(*reporterOptions)

type reporterOptions struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) ReporterOption {
	return func(o *reporterOptions) {
		o.meterProvider = mp
	}
}

// NewReporter creates a Reporter bound to the given (or global) meter provider.
func NewReporter(logger *zap.Logger, opts ...ReporterOption) (*Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := reporterOptions{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	counter, err := o.meterProvider.Meter(InstrumentationName).Int64Counter(
		"skillbridge.exceptions",
		metric.WithDescription("Exceptions captured and converted into error responses"),
		metric.WithUnit("{exception}"),
	)
	if err != nil {
		return nil, err
	}

	return &Reporter{
		logger:  logger.With(zap.String("component", "exception_reporter")),
		counter: counter,
	}, nil
}

// ReportException implements ExceptionReporter.
func (r *Reporter) ReportException(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if r == nil || err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())

	r.counter.Add(ctx, 1, metric.WithAttributes(counterAttrs(attrs)...))

	fields := make([]zap.Field, 0, len(attrs)+2)
	fields = append(fields, zap.Error(err))
	if sc := span.SpanContext(); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	for _, kv := range attrs {
		fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
	}
	r.logger.Error("exception reported", fields...)
}
