// Package releasecontributor publishes a build directory as a versioned
// release and switches a `current` symlink to it.
//
// Deploy configuration:
//
//	release:
//	  distDir: dist                 # relative to the project root
//	  targetDir: /srv/www/demo      # required
//	  diffFile: index.html          # compared against the previous release
//
// Layout produced under targetDir:
//
//	releases/<revision>/...
//	current -> releases/<revision>
package releasecontributor

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alexisbeaulieu97/deployline/internal/contributors"
	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/pkg/diff"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Name is the full contributor name declared in project manifests.
const Name = "ember-cli-deploy-release"

const (
	defaultDistDir  = "dist"
	defaultDiffFile = "index.html"
	currentLink     = "current"
	releasesDir     = "releases"

	stateReleasePath = "releasePath"
	stateReleaseKey  = "releaseKey"

	// KeyActiveRelease is the Data key holding the activated release path.
	KeyActiveRelease = "activeRelease"
	// KeyReleaseDiff holds the unified diff of diffFile against the previous release.
	KeyReleaseDiff = "releaseDiff"
)

func init() {
	contributors.MustRegister(Name, New)
}

// New builds the upload, activate and didDeploy hooks.
func New(opts deploy.PluginOptions) (*deploy.Plugin, error) {
	return deploy.NewPlugin(opts.Name).
		On(deploy.StageUpload, upload).
		On(deploy.StageActivate, activate).
		On(deploy.StageDidDeploy, report), nil
}

func upload(ctx context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
	target, err := targetDir(deployment)
	if err != nil {
		return apperrors.NewExecutionError(owner.Name+".upload", err)
	}

	source := distDir(deployment)
	key := deployment.Data.String("revision")
	if key == "" {
		key = time.Now().UTC().Format("20060102150405")
	}
	dest := filepath.Join(target, releasesDir, key)

	if _, err := os.Stat(dest); err == nil {
		return apperrors.NewExecutionError(owner.Name+".upload", fmt.Errorf("release %s already exists", key))
	}
	if err := copyDirectory(ctx, source, dest); err != nil {
		return apperrors.NewExecutionError(owner.Name+".upload", fmt.Errorf("copy %s: %w", source, err))
	}

	owner.State[stateReleasePath] = dest
	owner.State[stateReleaseKey] = key
	if deployment.UI != nil {
		deployment.UI.WriteLine(fmt.Sprintf("uploaded release %s", key))
	}
	return nil
}

func activate(_ context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
	dest, _ := owner.State[stateReleasePath].(string)
	if dest == "" {
		return apperrors.NewExecutionError(owner.Name+".activate", fmt.Errorf("no release uploaded"))
	}
	target, err := targetDir(deployment)
	if err != nil {
		return apperrors.NewExecutionError(owner.Name+".activate", err)
	}

	link := filepath.Join(target, currentLink)
	rel, err := filepath.Rel(target, dest)
	if err != nil {
		rel = dest
	}
	previous := previousRelease(link)

	// Rename over the old link so readers never observe a missing `current`.
	tmp := fmt.Sprintf("%s.tmp-%d", link, time.Now().UnixNano())
	if err := os.Symlink(rel, tmp); err != nil {
		return apperrors.NewExecutionError(owner.Name+".activate", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return apperrors.NewExecutionError(owner.Name+".activate", err)
	}

	deployment.Data.Set(KeyActiveRelease, dest)
	if previous != "" && previous != dest {
		compareReleases(deployment, previous, dest)
	}
	return nil
}

func previousRelease(link string) string {
	target, err := os.Readlink(link)
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return target
}

// compareReleases is informational; unreadable files are treated as empty.
func compareReleases(deployment *deploy.Context, previous, next string) {
	name := defaultDiffFile
	if deployment.DeployConfig != nil {
		if configured := deployment.DeployConfig.String("release.diffFile"); configured != "" {
			name = configured
		}
	}

	before, _ := os.ReadFile(filepath.Join(previous, name))
	after, _ := os.ReadFile(filepath.Join(next, name))
	result := diff.Lines(before, after, filepath.Join(filepath.Base(previous), name), filepath.Join(filepath.Base(next), name))
	if !result.Changed() {
		return
	}

	deployment.Data.Set(KeyReleaseDiff, result.Unified)
	if deployment.UI != nil {
		deployment.UI.WriteLine(fmt.Sprintf("%s changed %s", name, result.Summary()))
	}
}

func report(_ context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
	key, _ := owner.State[stateReleaseKey].(string)
	if deployment.UI == nil || key == "" {
		return nil
	}
	name := "project"
	if deployment.Project != nil && deployment.Project.Name != "" {
		name = deployment.Project.Name
	}
	deployment.UI.WriteLine(fmt.Sprintf("%s release %s is live", name, key))
	return nil
}

func targetDir(deployment *deploy.Context) (string, error) {
	if deployment.DeployConfig == nil {
		return "", fmt.Errorf("release.targetDir is not configured")
	}
	target := deployment.DeployConfig.String("release.targetDir")
	if target == "" {
		return "", fmt.Errorf("release.targetDir is not configured")
	}
	return target, nil
}

func distDir(deployment *deploy.Context) string {
	dir := defaultDistDir
	if deployment.DeployConfig != nil {
		if configured := deployment.DeployConfig.String("release.distDir"); configured != "" {
			dir = configured
		}
	}
	if filepath.IsAbs(dir) || deployment.Project == nil || deployment.Project.Root == "" {
		return dir
	}
	return filepath.Join(deployment.Project.Root, dir)
}

func copyDirectory(ctx context.Context, src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == src {
			return nil
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dstPath := filepath.Join(dst, relPath)

		info, err := entry.Info()
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return os.MkdirAll(dstPath, info.Mode().Perm())
		}
		return copyFile(path, dstPath, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
