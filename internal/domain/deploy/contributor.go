package deploy

import (
	"fmt"
	"regexp"
)

const (
	// DefaultCapabilityKeyword marks a package as a deploy plugin.
	DefaultCapabilityKeyword = "ember-cli-deploy-plugin"
	// DefaultNamePrefix is stripped from a contributor name to derive its short name.
	DefaultNamePrefix = "ember-cli-deploy-"
)

var shortNamePattern = regexp.MustCompile(`^(` + regexp.QuoteMeta(DefaultNamePrefix) + `)(.*)$`)

// PluginOptions is passed to a contributor's factory.
type PluginOptions struct {
	Name string
}

// PluginFactory produces the hook set of a contributor.
type PluginFactory func(opts PluginOptions) (*Plugin, error)

// Contributor is an installed extension unit that may supply hooks.
type Contributor interface {
	Name() string
	Keywords() []string
	// DeployPluginFactory returns nil when the unit exposes no factory.
	DeployPluginFactory() PluginFactory
}

// Addon is the concrete Contributor read from a project manifest.
type Addon struct {
	PackageName     string
	PackageKeywords []string
	Factory         PluginFactory
}

// Name returns the package name. The Addon accessors are nil-receiver safe, so
// a typed nil stored in a Contributor never qualifies.
func (a *Addon) Name() string {
	if a == nil {
		return ""
	}
	return a.PackageName
}

func (a *Addon) Keywords() []string {
	if a == nil {
		return nil
	}
	return a.PackageKeywords
}

func (a *Addon) DeployPluginFactory() PluginFactory {
	if a == nil {
		return nil
	}
	return a.Factory
}

// Predicate is one half of the qualification check.
type Predicate func(Contributor) bool

// HasKeyword reports whether the contributor lists keyword exactly.
func HasKeyword(keyword string) Predicate {
	return func(c Contributor) bool {
		for _, candidate := range c.Keywords() {
			if candidate == keyword {
				return true
			}
		}
		return false
	}
}

// ProvidesFactory reports whether the contributor exposes a plugin factory.
func ProvidesFactory(c Contributor) bool {
	return c.DeployPluginFactory() != nil
}

// Qualifier decides which contributors take part in a run.
type Qualifier struct {
	Predicates []Predicate
}

// DefaultQualifier requires the capability keyword and a factory.
func DefaultQualifier() *Qualifier {
	return &Qualifier{Predicates: []Predicate{
		HasKeyword(DefaultCapabilityKeyword),
		ProvidesFactory,
	}}
}

// Qualifies reports whether every predicate holds for c.
func (q *Qualifier) Qualifies(c Contributor) bool {
	if c == nil {
		return false
	}
	for _, predicate := range q.Predicates {
		if !predicate(c) {
			return false
		}
	}
	return true
}

// ShortName strips DefaultNamePrefix from a contributor name.
func ShortName(name string) (string, error) {
	matches := shortNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return "", newDomainError(ErrCodePlugin, fmt.Sprintf("contributor name must start with %q", DefaultNamePrefix), nil, map[string]interface{}{
			"contributor": name,
		})
	}
	return matches[2], nil
}
