package ports

import (
	"context"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
)

// ConfigReader produces a view over one environment of a configuration file.
// Error mapping expectations:
//   - missing file → deploy.ErrCodeNotFound
//   - YAML or schema failures, unknown environment → deploy.ErrCodeValidation
//   - context cancellation → deploy.ErrCodeCancelled
type ConfigReader interface {
	Read(ctx context.Context, environment, path string) (deploy.ConfigView, error)
}

// ProjectLoader materialises the project model and its installed addons.
type ProjectLoader interface {
	Load(ctx context.Context, path string) (*deploy.Project, error)
}
