// Package commandcontributor runs operator-supplied shell commands at any stage.
//
// Deploy configuration:
//
//	command:
//	  shell: /bin/bash        # optional
//	  build: npm run build
//	  didDeploy: ./notify.sh
package commandcontributor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/alexisbeaulieu97/deployline/internal/contributors"
	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Name is the full contributor name declared in project manifests.
const Name = "ember-cli-deploy-command"

func init() {
	contributors.MustRegister(Name, New)
}

// New builds a plugin with one hook per canonical stage. Hooks without a
// configured command succeed without doing anything.
func New(opts deploy.PluginOptions) (*deploy.Plugin, error) {
	plugin := deploy.NewPlugin(opts.Name)
	for _, stage := range deploy.DefaultStages() {
		plugin.On(stage, runStage(stage))
	}
	return plugin, nil
}

func runStage(stage deploy.StageName) deploy.HookFunc {
	return func(ctx context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
		if deployment.DeployConfig == nil {
			return nil
		}
		command := strings.TrimSpace(deployment.DeployConfig.String("command." + stage.String()))
		if command == "" {
			return nil
		}

		shell, shellArgs, err := determineShell(deployment.DeployConfig.String("command.shell"))
		if err != nil {
			return apperrors.NewExecutionError(hookName(owner, stage), err)
		}

		cmd := exec.CommandContext(ctx, shell, append(shellArgs, command)...)
		cmd.Env = buildEnv(map[string]string{
			"DEPLOY_STAGE":       stage.String(),
			"DEPLOY_ENVIRONMENT": deployment.DeployConfig.Environment(),
			"DEPLOY_REVISION":    deployment.Data.String("revision"),
		})
		if deployment.Project != nil && deployment.Project.Root != "" {
			cmd.Dir = deployment.Project.Root
		}

		res, err := run(cmd)
		if err != nil {
			if out := res.primary(); out != "" {
				err = fmt.Errorf("%w: %s", err, out)
			}
			return apperrors.NewExecutionError(hookName(owner, stage), err)
		}

		owner.State[stage.String()] = res.stdout
		if deployment.UI != nil && res.stdout != "" {
			deployment.UI.WriteLine(fmt.Sprintf("%s: %s", stage, res.stdout))
		}
		return nil
	}
}

type result struct {
	stdout string
	stderr string
}

// primary returns stderr when present, otherwise stdout.
func (r result) primary() string {
	if r.stderr != "" {
		return r.stderr
	}
	return r.stdout
}

// run captures output instead of streaming it: hooks of one stage run
// concurrently and would interleave on the terminal.
func run(cmd *exec.Cmd) (result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return result{
		stdout: strings.TrimSpace(stdout.String()),
		stderr: strings.TrimSpace(stderr.String()),
	}, err
}

func hookName(owner *deploy.Plugin, stage deploy.StageName) string {
	return owner.Name + "." + stage.String()
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}

	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}

func buildEnv(custom map[string]string) []string {
	env := os.Environ()
	for k, v := range custom {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
