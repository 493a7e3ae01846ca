package main

import (
	"context"
	"io"

	"github.com/alexisbeaulieu97/deployline/internal/contributors"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/engine"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/project"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/telemetry"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

type appOptions struct {
	Verbose     bool
	LogWriter   io.Writer
	Trace       bool
	TraceWriter io.Writer
	Metrics     bool
}

// AppContext bundles the long-lived services of one command execution.
type AppContext struct {
	Logger          ports.Logger
	Events          *events.LoggingPublisher
	Catalog         *contributors.Catalog
	Projects        *project.ManifestLoader
	Configs         *config.YAMLReader
	Metrics         *telemetry.PrometheusCollector
	Tracer          *telemetry.OTelTracer
	Instrumentation *engine.Instrumentation
}

func newAppContext(opts appOptions) (*AppContext, error) {
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Writer:        opts.LogWriter,
		Level:         level,
		HumanReadable: true,
		Layer:         "infrastructure",
		Component:     "cli",
	})
	if err != nil {
		return nil, err
	}

	app := &AppContext{
		Logger:  logger,
		Events:  events.NewLoggingPublisher(logger.With("component", "events")),
		Catalog: contributors.Builtin(),
		Configs: config.NewYAMLReader(logger.With("component", "config_reader")),
	}
	app.Projects = project.NewManifestLoader(app.Catalog, logger.With("component", "project_loader"))

	instOpts := []engine.InstrumentationOption{
		engine.WithInstrumentationLogger(logger.With("component", "pipeline")),
		engine.WithInstrumentationEvents(app.Events),
	}
	if opts.Metrics {
		app.Metrics = telemetry.NewPrometheusCollector(telemetry.WithErrorHandler(func(err error) {
			logger.Warn(context.Background(), "metrics collection failed", "error", err)
		}))
		instOpts = append(instOpts, engine.WithInstrumentationMetrics(app.Metrics))
	}
	if opts.Trace {
		tracer, err := telemetry.NewOTelTracer(opts.TraceWriter)
		if err != nil {
			return nil, err
		}
		app.Tracer = tracer
		instOpts = append(instOpts, engine.WithInstrumentationTracer(tracer))
	}
	app.Instrumentation = engine.NewInstrumentation(instOpts...)

	return app, nil
}

// Close flushes telemetry.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Tracer != nil {
		return a.Tracer.Shutdown(ctx)
	}
	return nil
}
