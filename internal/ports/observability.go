package ports

import "context"

// MetricsCollector records quantitative observability signals. Standard metric
// names include:
//   - Counters:
//     deployline_deploy_runs_total{status="success|failure"}
//     deployline_stage_executions_total{stage="...", status="success|failure"}
//     deployline_hook_executions_total{stage="...", plugin="...", status="success|failure"}
//   - Gauges:
//     deployline_stage_hooks{stage="..."}
//   - Histograms:
//     deployline_stage_duration_seconds{stage="..."}
//     deployline_hook_duration_seconds{stage="...", plugin="..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages tracing spans. Span names follow `<component>.<operation>`
// (deploy.run, pipeline.stage).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
	Inject(ctx context.Context, carrier interface{}) error
	Extract(ctx context.Context, carrier interface{}) (context.Context, error)
}

// Span represents an active tracing span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus provides strongly typed span result semantics.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
