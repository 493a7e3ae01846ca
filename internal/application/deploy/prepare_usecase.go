package deploy

import (
	"context"
	"path/filepath"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
)

const (
	// DefaultBuildEnv is used when the deploy configuration sets no buildEnv.
	DefaultBuildEnv = "production"
	// AppConfigPath is the application configuration, relative to the project root.
	AppConfigPath = "config/environment.yaml"
)

// PrepareRequest names the files a deploy is resolved from.
type PrepareRequest struct {
	Environment      string
	DeployConfigPath string
	ProjectPath      string
	StageNames       []deploy.StageName
	UI               deploy.UI
}

// PrepareUseCase loads the project and both configurations and returns
// orchestrator options ready for NewOrchestrator.
type PrepareUseCase struct {
	projects ports.ProjectLoader
	configs  ports.ConfigReader
	logger   ports.Logger
}

// NewPrepareUseCase constructs a prepare use case with the required ports.
func NewPrepareUseCase(projects ports.ProjectLoader, configs ports.ConfigReader, logger ports.Logger) *PrepareUseCase {
	return &PrepareUseCase{projects: projects, configs: configs, logger: logger}
}

// Prepare resolves req. Relative config paths are taken from the project root.
func (u *PrepareUseCase) Prepare(ctx context.Context, req PrepareRequest) (Options, error) {
	if u.logger != nil {
		u.logger.Info(ctx, "preparing deploy", "environment", req.Environment, "project_path", req.ProjectPath)
	}

	project, err := u.projects.Load(ctx, req.ProjectPath)
	if err != nil {
		u.logError(ctx, "failed to load project", err, "project_path", req.ProjectPath)
		return Options{}, err
	}

	deployConfigPath := resolve(project.Root, req.DeployConfigPath)
	deployConfig, err := u.configs.Read(ctx, req.Environment, deployConfigPath)
	if err != nil {
		u.logError(ctx, "failed to read deploy configuration", err, "path", deployConfigPath, "environment", req.Environment)
		return Options{}, err
	}

	buildEnv := deployConfig.String("buildEnv")
	if buildEnv == "" {
		buildEnv = DefaultBuildEnv
	}

	appConfigPath := resolve(project.Root, AppConfigPath)
	appConfig, err := u.configs.Read(ctx, buildEnv, appConfigPath)
	if err != nil {
		u.logError(ctx, "failed to read app configuration", err, "path", appConfigPath, "build_env", buildEnv)
		return Options{}, err
	}

	if u.logger != nil {
		u.logger.Info(ctx, "deploy prepared", "project", project.Name, "environment", req.Environment, "build_env", buildEnv, "addons", len(project.Addons))
	}
	return Options{
		Project:      project,
		UI:           req.UI,
		StageNames:   req.StageNames,
		DeployConfig: deployConfig,
		AppConfig:    appConfig,
	}, nil
}

func (u *PrepareUseCase) logError(ctx context.Context, msg string, err error, fields ...interface{}) {
	if u.logger == nil {
		return
	}
	u.logger.Error(ctx, msg, append(fields, "error", err)...)
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}
