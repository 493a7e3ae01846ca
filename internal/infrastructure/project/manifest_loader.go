package project

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Manifest is the on-disk project description.
//
//	name: my-app
//	addons:
//	  - name: ember-cli-deploy-revision
//	    keywords: [ember-cli-addon, ember-cli-deploy-plugin]
type Manifest struct {
	Name   string          `yaml:"name" validate:"required"`
	Addons []AddonManifest `yaml:"addons" validate:"dive"`
}

// AddonManifest describes one installed extension unit.
type AddonManifest struct {
	Name     string   `yaml:"name" validate:"required,package_name"`
	Keywords []string `yaml:"keywords"`
}

// ManifestLoader implements ports.ProjectLoader. Addons are given the factory
// the catalog holds under the same name; others get none and never qualify.
type ManifestLoader struct {
	catalog ports.ContributorCatalog
	logger  ports.Logger
}

// NewManifestLoader builds a loader resolving factories from catalog.
func NewManifestLoader(catalog ports.ContributorCatalog, logger ports.Logger) *ManifestLoader {
	return &ManifestLoader{catalog: catalog, logger: logger}
}

// Load reads the manifest at path. The project root is the manifest's directory.
func (l *ManifestLoader) Load(ctx context.Context, path string) (*deploy.Project, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, &deploy.DomainError{Code: deploy.ErrCodeCancelled, Message: "load cancelled", Cause: err}
		}
	}

	var manifest Manifest
	if err := config.DecodeFile(path, &manifest); err != nil {
		l.log(ctx, "failed to parse project manifest", "path", path, "error", err)
		return nil, config.ConvertError(err, path)
	}

	if err := config.Validator().Struct(&manifest); err != nil {
		converted := config.ConvertError(validationError(err), path)
		l.log(ctx, "project manifest invalid", "path", path, "error", converted)
		return nil, converted
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, config.ConvertError(err, path)
	}

	project := &deploy.Project{
		Name:   manifest.Name,
		Root:   root,
		Addons: make([]deploy.Contributor, 0, len(manifest.Addons)),
	}
	for _, entry := range manifest.Addons {
		addon := &deploy.Addon{
			PackageName:     entry.Name,
			PackageKeywords: append([]string(nil), entry.Keywords...),
		}
		if l.catalog != nil {
			if factory, ok := l.catalog.Lookup(entry.Name); ok {
				addon.Factory = factory
			}
		}
		project.Addons = append(project.Addons, addon)
	}

	if l.logger != nil {
		l.logger.Info(ctx, "project manifest loaded", "path", path, "project", project.Name, "addons", len(project.Addons))
	}
	return project, nil
}

func (l *ManifestLoader) log(ctx context.Context, msg string, fields ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Error(ctx, msg, fields...)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return apperrors.NewValidationError(first.Namespace(), "failed "+first.Tag()+" check", err)
	}
	return apperrors.NewValidationError("", err.Error(), err)
}

var _ ports.ProjectLoader = (*ManifestLoader)(nil)
