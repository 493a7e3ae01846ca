package deploy

import (
	"context"
	"time"
)

// Observer receives pipeline lifecycle notifications. HookFinished is called
// concurrently for hooks of the same stage.
type Observer interface {
	StageStarted(ctx context.Context, stage StageName, hooks int) context.Context
	HookFinished(ctx context.Context, stage StageName, source string, elapsed time.Duration, err error)
	StageFinished(ctx context.Context, stage StageName, elapsed time.Duration, err error)
}

// Pipeline holds the fixed stage sequence and the handlers registered for each
// stage. Registration happens before Run; handler lists are read-only afterwards.
type Pipeline struct {
	stages   []StageName
	hooks    map[StageName][]Handler
	observer Observer
}

// PipelineOption configures a pipeline instance.
type PipelineOption func(*Pipeline)

// WithObserver attaches lifecycle notifications to the pipeline.
func WithObserver(observer Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// NewPipeline creates a pipeline over stages. Repeated names keep their first
// position; a nil or empty list yields a pipeline that succeeds immediately.
func NewPipeline(stages []StageName, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: make([]StageName, 0, len(stages)),
		hooks:  make(map[StageName][]Handler, len(stages)),
	}
	for _, stage := range stages {
		if _, exists := p.hooks[stage]; exists {
			continue
		}
		p.stages = append(p.stages, stage)
		p.hooks[stage] = []Handler{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register appends handler to stage. Unknown stages and nil handlers are
// ignored; the return value reports whether the handler was stored.
func (p *Pipeline) Register(stage StageName, handler Handler) bool {
	if handler == nil {
		return false
	}
	handlers, ok := p.hooks[stage]
	if !ok {
		return false
	}
	p.hooks[stage] = append(handlers, handler)
	return true
}

// HasStage reports whether stage was fixed at construction.
func (p *Pipeline) HasStage(stage StageName) bool {
	_, ok := p.hooks[stage]
	return ok
}

// Stages returns the stage sequence in execution order.
func (p *Pipeline) Stages() []StageName {
	return append([]StageName(nil), p.stages...)
}

// Handlers returns a copy of the handlers registered for stage.
func (p *Pipeline) Handlers(stage StageName) []Handler {
	return append([]Handler(nil), p.hooks[stage]...)
}

// Run executes the stages in order. Handlers of one stage run concurrently and
// are all awaited before the next stage starts. The first handler failure of a
// stage is returned as-is and no later stage runs. A nil deployment, or one
// without Data, gets an empty namespace first.
func (p *Pipeline) Run(ctx context.Context, deployment *Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deployment == nil {
		deployment = NewContext()
	}
	if deployment.Data == nil {
		deployment.Data = NewData()
	}

	for _, stage := range p.stages {
		if err := p.runStage(ctx, stage, deployment); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage StageName, deployment *Context) error {
	handlers := p.hooks[stage]

	if p.observer != nil {
		if stageCtx := p.observer.StageStarted(ctx, stage, len(handlers)); stageCtx != nil {
			ctx = stageCtx
		}
	}

	start := time.Now()
	tasks := make([]Task, len(handlers))
	for i, handler := range handlers {
		tasks[i] = p.invoke(stage, handler, deployment)
	}
	err := RunAll(ctx, tasks...)

	if p.observer != nil {
		p.observer.StageFinished(ctx, stage, time.Since(start), err)
	}
	return err
}

func (p *Pipeline) invoke(stage StageName, handler Handler, deployment *Context) Task {
	source := HandlerSource(handler)
	return func(ctx context.Context) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Stage: stage, Source: source, Value: r}
			}
			if p.observer != nil {
				p.observer.HookFinished(ctx, stage, source, time.Since(start), err)
			}
		}()
		return handler.Handle(ctx, deployment)
	}
}
