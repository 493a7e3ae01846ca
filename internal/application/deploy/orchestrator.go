// Package deploy wires installed contributors into a staged pipeline and runs
// it against a single shared deployment context.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Options are the construction inputs of an Orchestrator. Project, UI,
// DeployConfig and AppConfig are required.
type Options struct {
	Project      *deploy.Project
	UI           deploy.UI
	DeployConfig deploy.ConfigView
	AppConfig    deploy.ConfigView

	// StageNames defaults to deploy.DefaultStages() when nil.
	StageNames []deploy.StageName
	// Qualifier defaults to deploy.DefaultQualifier() when nil.
	Qualifier *deploy.Qualifier
	Observer  deploy.Observer

	Logger  ports.Logger
	Events  ports.EventPublisher
	Metrics ports.MetricsCollector
	Tracer  ports.Tracer
}

// Registration records which stages a contributor's plugin hooked into.
type Registration struct {
	Contributor string
	Plugin      string
	Stages      []deploy.StageName
}

// Orchestrator owns the pipeline and the deployment context of one run.
type Orchestrator struct {
	pipeline      *deploy.Pipeline
	deployment    *deploy.Context
	registrations []Registration
	logger        ports.Logger
	events        ports.EventPublisher
	metrics       ports.MetricsCollector
	tracer        ports.Tracer
}

// NewOrchestrator validates opts, builds the deployment context, and registers
// the hooks of every qualifying contributor in project order.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Project == nil:
		return nil, apperrors.NewConfigurationError("project", "no project supplied")
	case opts.UI == nil:
		return nil, apperrors.NewConfigurationError("ui", "no ui supplied")
	case opts.DeployConfig == nil:
		return nil, apperrors.NewConfigurationError("deployConfig", "no deploy configuration supplied")
	case opts.AppConfig == nil:
		return nil, apperrors.NewConfigurationError("appConfig", "no app configuration supplied")
	}

	stages := opts.StageNames
	if stages == nil {
		stages = deploy.DefaultStages()
	}
	qualifier := opts.Qualifier
	if qualifier == nil {
		qualifier = deploy.DefaultQualifier()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	var pipelineOpts []deploy.PipelineOption
	if opts.Observer != nil {
		pipelineOpts = append(pipelineOpts, deploy.WithObserver(opts.Observer))
	}

	deployment := deploy.NewContext()
	deployment.UI = opts.UI
	deployment.Project = opts.Project
	deployment.DeployConfig = opts.DeployConfig
	deployment.AppConfig = opts.AppConfig

	o := &Orchestrator{
		pipeline:   deploy.NewPipeline(stages, pipelineOpts...),
		deployment: deployment,
		logger:     logger,
		events:     opts.Events,
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
	}

	for _, contributor := range opts.Project.Addons {
		plugin, err := loadPlugin(contributor, qualifier)
		if err != nil {
			return nil, err
		}
		if plugin == nil {
			continue
		}
		registration := bindPlugin(o.pipeline, logger, contributor.Name(), plugin)
		o.registrations = append(o.registrations, registration)
	}
	return o, nil
}

// PlanRegistrations resolves contributors exactly as NewOrchestrator does and
// reports the stages each one would register, without building a context.
// Nil stages and a nil qualifier take the same defaults as Options.
func PlanRegistrations(contributors []deploy.Contributor, stages []deploy.StageName, qualifier *deploy.Qualifier) ([]Registration, error) {
	if stages == nil {
		stages = deploy.DefaultStages()
	}
	if qualifier == nil {
		qualifier = deploy.DefaultQualifier()
	}
	pipeline := deploy.NewPipeline(stages)
	logger := logging.NewNoOpLogger()

	var out []Registration
	for _, contributor := range contributors {
		plugin, err := loadPlugin(contributor, qualifier)
		if err != nil {
			return nil, err
		}
		if plugin == nil {
			continue
		}
		out = append(out, bindPlugin(pipeline, logger, contributor.Name(), plugin))
	}
	return out, nil
}

// loadPlugin instantiates a qualifying contributor. It returns a nil plugin
// and nil error for contributors that contribute nothing.
func loadPlugin(contributor deploy.Contributor, qualifier *deploy.Qualifier) (*deploy.Plugin, error) {
	if !qualifier.Qualifies(contributor) {
		return nil, nil
	}
	factory := contributor.DeployPluginFactory()
	if factory == nil {
		return nil, nil
	}

	name := contributor.Name()
	short, err := deploy.ShortName(name)
	if err != nil {
		return nil, apperrors.NewPluginError(name, err)
	}
	plugin, err := factory(deploy.PluginOptions{Name: short})
	if err != nil {
		return nil, apperrors.NewPluginError(name, fmt.Errorf("create deploy plugin: %w", err))
	}
	if plugin == nil {
		return nil, apperrors.NewPluginError(name, fmt.Errorf("factory returned no plugin"))
	}
	if plugin.Name == "" {
		plugin.Name = short
	}
	return plugin, nil
}

// bindPlugin registers every hook of plugin whose key is a stage of pipeline,
// bound to the plugin itself.
func bindPlugin(pipeline *deploy.Pipeline, logger ports.Logger, name string, plugin *deploy.Plugin) Registration {
	registration := Registration{Contributor: name, Plugin: plugin.Name}
	for _, stage := range pipeline.Stages() {
		if stage == deploy.ReservedHookName {
			continue
		}
		fn := plugin.Hooks[stage]
		if fn == nil {
			continue
		}
		if pipeline.Register(stage, deploy.Bind(plugin, fn)) {
			registration.Stages = append(registration.Stages, stage)
		}
	}
	for hook := range plugin.Hooks {
		if hook != deploy.ReservedHookName && !pipeline.HasStage(hook) {
			logger.Debug(context.Background(), "ignoring hook outside the stage list", "plugin", plugin.Name, "hook", hook)
		}
	}

	logger.Debug(context.Background(), "registered contributor", "contributor", name, "plugin", plugin.Name, "stages", len(registration.Stages))
	return registration
}

// Run executes the pipeline against the construction-time context. A hook
// failure is returned unchanged.
func (o *Orchestrator) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var span ports.Span
	if o.tracer != nil {
		var spanCtx context.Context
		spanCtx, span = o.tracer.StartSpan(ctx, "deploy.run", "project", o.deployment.Project.Name)
		if spanCtx != nil {
			ctx = spanCtx
		}
		defer span.End()
	}

	stages := o.pipeline.Stages()
	o.logger.Info(ctx, "deploy started", "project", o.deployment.Project.Name, "stages", len(stages), "plugins", len(o.registrations))
	o.emit(ctx, ports.EventDeployStarted, map[string]interface{}{
		"stages":  stageStrings(stages),
		"plugins": len(o.registrations),
	})

	start := time.Now()
	err := o.pipeline.Run(ctx, o.deployment)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
	}
	if o.metrics != nil {
		o.metrics.IncCounter(ctx, "deployline_deploy_runs_total", map[string]string{"status": status})
	}

	if err != nil {
		if span != nil {
			span.SetStatus(ports.SpanStatusError, err.Error())
		}
		o.logger.Error(ctx, "deploy failed", "project", o.deployment.Project.Name, "duration_ms", elapsed.Milliseconds(), "error", err)
		o.emit(ctx, ports.EventDeployFailed, map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return err
	}

	if span != nil {
		span.SetStatus(ports.SpanStatusOK, "success")
	}
	o.logger.Info(ctx, "deploy completed", "project", o.deployment.Project.Name, "duration_ms", elapsed.Milliseconds())
	o.emit(ctx, ports.EventDeployCompleted, map[string]interface{}{
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

// Context returns the shared deployment context.
func (o *Orchestrator) Context() *deploy.Context {
	return o.deployment
}

// Pipeline exposes the configured pipeline for inspection.
func (o *Orchestrator) Pipeline() *deploy.Pipeline {
	return o.pipeline
}

// Registrations lists registered contributors in registration order.
func (o *Orchestrator) Registrations() []Registration {
	out := make([]Registration, len(o.registrations))
	for i, r := range o.registrations {
		out[i] = Registration{
			Contributor: r.Contributor,
			Plugin:      r.Plugin,
			Stages:      append([]deploy.StageName(nil), r.Stages...),
		}
	}
	return out
}

func stageStrings(stages []deploy.StageName) []string {
	out := make([]string, len(stages))
	for i, stage := range stages {
		out[i] = stage.String()
	}
	return out
}
