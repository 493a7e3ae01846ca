package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

const instrumentationName = "github.com/alexisbeaulieu97/deployline"

// OTelTracer implements ports.Tracer with the OpenTelemetry SDK. Finished spans
// are exported synchronously as JSON to the configured writer.
type OTelTracer struct {
	provider   *sdktrace.TracerProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewOTelTracer builds a tracer exporting spans to w.
func NewOTelTracer(w io.Writer) (*OTelTracer, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return &OTelTracer{
		provider:   provider,
		tracer:     provider.Tracer(instrumentationName),
		propagator: propagation.TraceContext{},
	}, nil
}

// StartSpan implements ports.Tracer. Attributes are alternating key/value pairs.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, ports.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attributes)...))
	return ctx, &otelSpan{span: span}
}

// Inject writes the active span context into a propagation.MapCarrier or a
// map[string]string.
func (t *OTelTracer) Inject(ctx context.Context, carrier interface{}) error {
	textCarrier, err := asCarrier(carrier)
	if err != nil {
		return err
	}
	t.propagator.Inject(ctx, textCarrier)
	return nil
}

// Extract returns a context carrying the remote span context found in carrier.
func (t *OTelTracer) Extract(ctx context.Context, carrier interface{}) (context.Context, error) {
	textCarrier, err := asCarrier(carrier)
	if err != nil {
		return ctx, err
	}
	return t.propagator.Extract(ctx, textCarrier), nil
}

// Shutdown flushes and stops the provider.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

func asCarrier(carrier interface{}) (propagation.TextMapCarrier, error) {
	switch c := carrier.(type) {
	case propagation.MapCarrier:
		return c, nil
	case map[string]string:
		return propagation.MapCarrier(c), nil
	case propagation.TextMapCarrier:
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported carrier type %T", carrier)
	}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) SetStatus(status ports.SpanStatus, message string) {
	switch status {
	case ports.SpanStatusOK:
		s.span.SetStatus(codes.Ok, "")
	case ports.SpanStatusError:
		s.span.SetStatus(codes.Error, message)
	default:
		s.span.SetStatus(codes.Unset, message)
	}
}

func (s *otelSpan) End() {
	s.span.End()
}

func toAttributes(kv []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, toAttribute(key, kv[i+1]))
	}
	return attrs
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

var _ ports.Tracer = (*OTelTracer)(nil)
