package ports

import "github.com/alexisbeaulieu97/deployline/internal/domain/deploy"

// ContributorCatalog resolves the plugin factory shipped for an installed
// addon. Catalogs are populated at startup and read concurrently afterwards.
type ContributorCatalog interface {
	Lookup(name string) (deploy.PluginFactory, bool)
	Names() []string
}
