// Package contributors holds the deploy plugins compiled into the binary.
// Sub-packages register their factory from init(); the CLI blank-imports them.
package contributors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

// Catalog maps full contributor names to their plugin factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]deploy.PluginFactory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]deploy.PluginFactory)}
}

// Register stores factory under name. Names must carry the contributor prefix
// and may be registered once.
func (c *Catalog) Register(name string, factory deploy.PluginFactory) error {
	if factory == nil {
		return apperrors.NewPluginError(name, fmt.Errorf("factory is nil"))
	}
	if _, err := deploy.ShortName(name); err != nil {
		return apperrors.NewPluginError(name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[name]; exists {
		return apperrors.NewPluginError(name, fmt.Errorf("contributor already registered"))
	}
	c.factories[name] = factory
	return nil
}

// Lookup implements ports.ContributorCatalog.
func (c *Catalog) Lookup(name string) (deploy.PluginFactory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	factory, ok := c.factories[name]
	return factory, ok
}

// Names implements ports.ContributorCatalog.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ports.ContributorCatalog = (*Catalog)(nil)

var builtin = NewCatalog()

// Builtin returns the process-wide catalog populated by init() registration.
func Builtin() *Catalog {
	return builtin
}

// MustRegister adds a factory to the builtin catalog and panics on conflict.
func MustRegister(name string, factory deploy.PluginFactory) {
	if err := builtin.Register(name, factory); err != nil {
		panic(err)
	}
}
