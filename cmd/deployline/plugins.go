package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	deployapp "github.com/alexisbeaulieu97/deployline/internal/application/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ui"
)

func newPluginsCmd(root *rootFlags) *cobra.Command {
	var (
		projectPath string
		stages      []string
	)

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the deploy plugins a project would run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugins(cmd.Context(), cmd, projectPath, stages, root.verbose)
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", "project.yaml", "Path to the project manifest")
	cmd.Flags().StringSliceVar(&stages, "stages", nil, "Resolve against this stage sequence instead of the default")
	return cmd
}

func runPlugins(ctx context.Context, cmd *cobra.Command, projectPath string, stages []string, verbose bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newAppContext(appOptions{Verbose: verbose, LogWriter: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	project, err := app.Projects.Load(ctx, projectPath)
	if err != nil {
		return err
	}

	registrations, err := deployapp.PlanRegistrations(project.Addons, parseStages(stages), nil)
	if err != nil {
		return err
	}

	console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
	entries := make(map[string][]deploy.StageName, len(registrations))
	order := make([]string, 0, len(registrations))
	for _, registration := range registrations {
		entries[registration.Contributor] = registration.Stages
		order = append(order, registration.Contributor)
	}

	console.Title(fmt.Sprintf("%s deploy plugins", project.Name))
	if len(order) == 0 {
		console.Muted("  none")
	}
	console.Registrations(entries, order)
	console.Muted(fmt.Sprintf("built-in contributors: %d", len(app.Catalog.Names())))
	for _, name := range app.Catalog.Names() {
		console.Muted("  " + name)
	}
	return nil
}
