package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
)

// View is a read-only deploy.ConfigView over the settings of one environment.
type View struct {
	environment string
	values      map[string]any
}

// NewView wraps values for environment. The map is not copied.
func NewView(environment string, values map[string]any) *View {
	if values == nil {
		values = map[string]any{}
	}
	return &View{environment: environment, values: values}
}

// Environment returns the environment the view was read for.
func (v *View) Environment() string {
	return v.environment
}

// Get looks key up literally first, then as a dotted path into nested maps,
// so both `buildEnv` and `command.build` resolve.
func (v *View) Get(key string) (any, bool) {
	if v == nil {
		return nil, false
	}
	if value, ok := v.values[key]; ok {
		return value, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	var current any = v.values
	for _, part := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String renders the value under key, or "" when it is absent or not a scalar.
func (v *View) String(key string) string {
	value, ok := v.Get(key)
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

// Keys lists the top-level keys in sorted order.
func (v *View) Keys() []string {
	keys := make([]string, 0, len(v.values))
	for key := range v.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ deploy.ConfigView = (*View)(nil)
