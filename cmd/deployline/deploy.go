package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	deployapp "github.com/alexisbeaulieu97/deployline/internal/application/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	"github.com/alexisbeaulieu97/deployline/internal/ui"
)

type deployOptions struct {
	Environment      string
	DeployConfigPath string
	ProjectPath      string
	Stages           []string
	Trace            bool
	MetricsFile      string
	Verbose          bool
}

var deployCmdRunner = runDeploy

func newDeployCmd(root *rootFlags) *cobra.Command {
	opts := deployOptions{}
	var devShorthand, prodShorthand bool

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run every deploy stage for an environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			opts.Environment = resolveEnvironment(opts.Environment, devShorthand, prodShorthand)

			if err := validateDeployOptions(opts); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return deployCmdRunner(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "development", "Deploy environment (dev and prod are accepted aliases)")
	cmd.Flags().BoolVar(&devShorthand, "dev", false, "Shorthand for --environment development")
	cmd.Flags().BoolVar(&prodShorthand, "prod", false, "Shorthand for --environment production")
	cmd.MarkFlagsMutuallyExclusive("environment", "dev", "prod")
	cmd.Flags().StringVar(&opts.DeployConfigPath, "deploy-config-file", "config/deploy.yaml", "Deploy configuration, relative to the project root")
	cmd.Flags().StringVar(&opts.ProjectPath, "project", "project.yaml", "Path to the project manifest")
	cmd.Flags().StringSliceVar(&opts.Stages, "stages", nil, "Override the stage sequence")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "Export OpenTelemetry spans to stderr")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

func runDeploy(ctx context.Context, cmd *cobra.Command, opts deployOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newAppContext(appOptions{
		Verbose:     opts.Verbose,
		LogWriter:   cmd.ErrOrStderr(),
		Trace:       opts.Trace,
		TraceWriter: cmd.ErrOrStderr(),
		Metrics:     opts.MetricsFile != "",
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(context.Background()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx = ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())
	console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())

	prepare := deployapp.NewPrepareUseCase(app.Projects, app.Configs, app.Logger.With("component", "prepare_usecase"))
	options, err := prepare.Prepare(ctx, deployapp.PrepareRequest{
		Environment:      opts.Environment,
		DeployConfigPath: opts.DeployConfigPath,
		ProjectPath:      opts.ProjectPath,
		StageNames:       parseStages(opts.Stages),
		UI:               console,
	})
	if err != nil {
		return err
	}

	options.Observer = app.Instrumentation
	options.Logger = app.Logger.With("component", "orchestrator", "layer", "application")
	options.Events = app.Events
	if app.Metrics != nil {
		options.Metrics = app.Metrics
	}
	if app.Tracer != nil {
		options.Tracer = app.Tracer
	}

	orchestrator, err := deployapp.NewOrchestrator(options)
	if err != nil {
		return err
	}

	console.Title(fmt.Sprintf("Deploying %s to %s", options.Project.Name, opts.Environment))
	runErr := orchestrator.Run(ctx)

	if opts.MetricsFile != "" && app.Metrics != nil {
		if err := app.Metrics.WriteToTextfile(opts.MetricsFile); err != nil {
			app.Logger.Warn(ctx, "failed to write metrics file", "path", opts.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		console.WriteError(runErr)
		return runErr
	}
	console.Success(fmt.Sprintf("%s deployed to %s", options.Project.Name, opts.Environment))
	return nil
}
