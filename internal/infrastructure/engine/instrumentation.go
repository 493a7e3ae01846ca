package engine

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

// Instrumentation turns pipeline lifecycle notifications into logs, metrics,
// spans and domain events. It is safe for concurrent use when the injected
// collaborators are.
type Instrumentation struct {
	logger  ports.Logger
	metrics ports.MetricsCollector
	tracer  ports.Tracer
	events  ports.EventPublisher
}

// InstrumentationOption configures an Instrumentation instance.
type InstrumentationOption func(*Instrumentation)

// WithInstrumentationLogger injects a logger.
func WithInstrumentationLogger(logger ports.Logger) InstrumentationOption {
	return func(i *Instrumentation) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithInstrumentationMetrics injects a metrics collector.
func WithInstrumentationMetrics(metrics ports.MetricsCollector) InstrumentationOption {
	return func(i *Instrumentation) {
		i.metrics = metrics
	}
}

// WithInstrumentationTracer injects a tracer.
func WithInstrumentationTracer(tracer ports.Tracer) InstrumentationOption {
	return func(i *Instrumentation) {
		i.tracer = tracer
	}
}

// WithInstrumentationEvents injects an event publisher.
func WithInstrumentationEvents(events ports.EventPublisher) InstrumentationOption {
	return func(i *Instrumentation) {
		i.events = events
	}
}

// NewInstrumentation constructs a deploy.Observer.
func NewInstrumentation(opts ...InstrumentationOption) *Instrumentation {
	inst := &Instrumentation{logger: logging.NewNoOpLogger()}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

type stageSpanKey struct{}

// StageStarted opens the stage span and announces the stage.
func (i *Instrumentation) StageStarted(ctx context.Context, stage deploy.StageName, hooks int) context.Context {
	if i.tracer != nil {
		spanCtx, span := i.tracer.StartSpan(ctx, "pipeline.stage", "stage", stage.String(), "hooks", hooks)
		if spanCtx != nil {
			ctx = spanCtx
		}
		ctx = context.WithValue(ctx, stageSpanKey{}, span)
	}
	if i.metrics != nil {
		i.metrics.SetGauge(ctx, "deployline_stage_hooks", float64(hooks), map[string]string{"stage": stage.String()})
	}

	i.logger.Debug(ctx, "stage started", "stage", stage, "hooks", hooks)
	publishEvent(ctx, i.events, i.logger, ports.EventStageStarted, map[string]interface{}{
		"stage": stage.String(),
		"hooks": hooks,
	})
	return ctx
}

// HookFinished records the outcome of a single handler.
func (i *Instrumentation) HookFinished(ctx context.Context, stage deploy.StageName, source string, elapsed time.Duration, err error) {
	status := statusOf(err)
	if i.metrics != nil {
		i.metrics.IncCounter(ctx, "deployline_hook_executions_total", map[string]string{
			"stage":  stage.String(),
			"plugin": source,
			"status": status,
		})
		i.metrics.ObserveHistogram(ctx, "deployline_hook_duration_seconds", elapsed.Seconds(), map[string]string{
			"stage":  stage.String(),
			"plugin": source,
		})
	}

	payload := map[string]interface{}{
		"stage":       stage.String(),
		"plugin":      source,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		i.logger.Error(ctx, "hook failed", "stage", stage, "plugin", source, "duration_ms", elapsed.Milliseconds(), "error", err)
		payload["error"] = err.Error()
		publishEvent(ctx, i.events, i.logger, ports.EventHookFailed, payload)
		return
	}
	i.logger.Debug(ctx, "hook completed", "stage", stage, "plugin", source, "duration_ms", elapsed.Milliseconds())
	publishEvent(ctx, i.events, i.logger, ports.EventHookCompleted, payload)
}

// StageFinished closes the stage span and records the stage outcome.
func (i *Instrumentation) StageFinished(ctx context.Context, stage deploy.StageName, elapsed time.Duration, err error) {
	status := statusOf(err)
	if i.metrics != nil {
		i.metrics.IncCounter(ctx, "deployline_stage_executions_total", map[string]string{
			"stage":  stage.String(),
			"status": status,
		})
		i.metrics.ObserveHistogram(ctx, "deployline_stage_duration_seconds", elapsed.Seconds(), map[string]string{
			"stage": stage.String(),
		})
	}

	if span, ok := ctx.Value(stageSpanKey{}).(ports.Span); ok && span != nil {
		span.SetAttribute("stage_status", status)
		if err != nil {
			span.SetStatus(ports.SpanStatusError, err.Error())
		} else {
			span.SetStatus(ports.SpanStatusOK, "success")
		}
		span.End()
	}

	payload := map[string]interface{}{
		"stage":       stage.String(),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		i.logger.Warn(ctx, "stage failed", "stage", stage, "duration_ms", elapsed.Milliseconds(), "error", err)
		payload["error"] = err.Error()
		publishEvent(ctx, i.events, i.logger, ports.EventStageFailed, payload)
		return
	}
	i.logger.Info(ctx, "stage completed", "stage", stage, "duration_ms", elapsed.Milliseconds())
	publishEvent(ctx, i.events, i.logger, ports.EventStageCompleted, payload)
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

type pipelineEvent struct {
	eventType string
	payload   interface{}
}

func (e pipelineEvent) EventType() string    { return e.eventType }
func (e pipelineEvent) Payload() interface{} { return e.payload }

func publishEvent(ctx context.Context, publisher ports.EventPublisher, logger ports.Logger, eventType string, payload map[string]interface{}) {
	if publisher == nil {
		return
	}
	event := pipelineEvent{eventType: eventType, payload: payload}
	if err := publisher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn(ctx, "failed to publish pipeline event", "event_type", eventType, "error", err)
	}
}

var _ deploy.Observer = (*Instrumentation)(nil)
