package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const projectManifest = `name: demo
addons:
  - name: ember-cli-deploy-command
    keywords: [ember-cli-addon, ember-cli-deploy-plugin]
  - name: ember-cli-deploy-release
    keywords: [ember-cli-addon, ember-cli-deploy-plugin]
  - name: left-pad
    keywords: [string]
`

func writeProject(t *testing.T, buildCommand string) (string, string) {
	t.Helper()

	root := t.TempDir()
	target := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "project.yaml"), []byte(projectManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "deploy.yaml"), []byte(fmt.Sprintf(`production:
  buildEnv: production
  command:
    build: %q
  release:
    targetDir: %q
`, buildCommand, target)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "environment.yaml"), []byte("production:\n  rootURL: /\n"), 0o644))

	return root, target
}

func TestDeployEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	root, target := writeProject(t, "mkdir -p dist && echo hello > dist/index.html")
	metricsFile := filepath.Join(t.TempDir(), "deployline.prom")

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{
		"deploy",
		"--environment", "prod",
		"--project", filepath.Join(root, "project.yaml"),
		"--metrics-file", metricsFile,
	})

	require.NoError(t, cmd.Execute(), errOut.String())

	served, err := os.ReadFile(filepath.Join(target, "current", "index.html"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(served))

	require.Contains(t, out.String(), "Deploying demo to production")
	require.Contains(t, out.String(), "demo deployed to production")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `deployline_deploy_runs_total{status="success"} 1`)
	require.Contains(t, string(metrics), `deployline_hook_executions_total{plugin="release",stage="upload",status="success"} 1`)
	require.Contains(t, string(metrics), `deployline_stage_hooks{stage="upload"} 2`)
}

func TestDeployStopsOnHookFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	root, target := writeProject(t, "echo compile error >&2; exit 2")

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"deploy", "-e", "production", "--project", filepath.Join(root, "project.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "compile error")

	_, statErr := os.Lstat(filepath.Join(target, "current"))
	require.True(t, os.IsNotExist(statErr))
}

func TestDeployUnknownEnvironment(t *testing.T) {
	root, _ := writeProject(t, "true")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"deploy", "-e", "staging", "--project", filepath.Join(root, "project.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "environment not configured")
}

func TestPluginsCommandListsQualifyingContributors(t *testing.T) {
	root, _ := writeProject(t, "true")

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"plugins", "--project", filepath.Join(root, "project.yaml")})

	require.NoError(t, cmd.Execute())
	output := out.String()
	require.Contains(t, output, "demo deploy plugins")
	require.Contains(t, output, "ember-cli-deploy-command  willDeploy, build, upload, activate, didDeploy")
	require.Contains(t, output, "ember-cli-deploy-release  upload, activate, didDeploy")
	require.NotContains(t, output, "left-pad")
	require.Contains(t, output, "ember-cli-deploy-revision")
}
