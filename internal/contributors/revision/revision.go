// Package revisioncontributor tags a deployment with the git revision of the
// project being deployed.
package revisioncontributor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	git "github.com/go-git/go-git/v5"

	"github.com/alexisbeaulieu97/deployline/internal/contributors"
	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Name is the full contributor name declared in project manifests.
const Name = "ember-cli-deploy-revision"

const defaultLength = 8

// Data keys written for other hooks.
const (
	KeyRevision     = "revision"
	KeyRevisionData = "revisionData"
)

func init() {
	contributors.MustRegister(Name, New)
}

// New builds a plugin whose willDeploy hook resolves HEAD.
func New(opts deploy.PluginOptions) (*deploy.Plugin, error) {
	return deploy.NewPlugin(opts.Name).On(deploy.StageWillDeploy, resolve), nil
}

func resolve(ctx context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	root := "."
	if deployment.Project != nil && deployment.Project.Root != "" {
		root = deployment.Project.Root
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return apperrors.NewExecutionError(owner.Name+".willDeploy", fmt.Errorf("open repository %s: %w", root, err))
	}
	head, err := repo.Head()
	if err != nil {
		return apperrors.NewExecutionError(owner.Name+".willDeploy", fmt.Errorf("resolve HEAD: %w", err))
	}

	hash := head.Hash().String()
	revision := hash[:revisionLength(deployment.DeployConfig, len(hash))]

	owner.State[KeyRevision] = revision
	deployment.Data.Set(KeyRevision, revision)
	deployment.Data.Set(KeyRevisionData, map[string]any{
		"revisionKey": revision,
		"commit":      hash,
		"branch":      head.Name().Short(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})

	if deployment.UI != nil {
		deployment.UI.WriteLine(fmt.Sprintf("revision %s (%s)", revision, head.Name().Short()))
	}
	return nil
}

func revisionLength(cfg deploy.ConfigView, max int) int {
	length := defaultLength
	if cfg != nil {
		if raw := cfg.String("revision.length"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				length = parsed
			}
		}
	}
	if length > max {
		return max
	}
	return length
}
