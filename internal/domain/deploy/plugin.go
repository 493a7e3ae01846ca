package deploy

import (
	"context"
	"sort"
)

// Handler is a unit of work bound to one stage.
type Handler interface {
	Handle(ctx context.Context, deployment *Context) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, deployment *Context) error

// Handle calls f(ctx, deployment).
func (f HandlerFunc) Handle(ctx context.Context, deployment *Context) error {
	return f(ctx, deployment)
}

// HookFunc is a plugin hook. It receives the plugin that produced it so hooks of
// the same plugin can share state across stages.
type HookFunc func(ctx context.Context, owner *Plugin, deployment *Context) error

// Plugin is the hook set a contributor's factory returns.
type Plugin struct {
	// Name is the short name the factory was invoked with.
	Name  string
	Hooks map[StageName]HookFunc
	State map[string]any
}

// NewPlugin returns an empty plugin with initialised maps.
func NewPlugin(name string) *Plugin {
	return &Plugin{
		Name:  name,
		Hooks: make(map[StageName]HookFunc),
		State: make(map[string]any),
	}
}

// On sets the hook for stage and returns the plugin for chaining.
func (p *Plugin) On(stage StageName, fn HookFunc) *Plugin {
	if p.Hooks == nil {
		p.Hooks = make(map[StageName]HookFunc)
	}
	p.Hooks[stage] = fn
	return p
}

// HookNames returns the keys of Hooks in sorted order.
func (p *Plugin) HookNames() []StageName {
	if p == nil {
		return nil
	}
	names := make([]StageName, 0, len(p.Hooks))
	for name := range p.Hooks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Bind pairs fn with its owning plugin. The returned handler invokes
// fn(ctx, owner, deployment).
func Bind(owner *Plugin, fn HookFunc) Handler {
	return &boundHook{owner: owner, fn: fn}
}

type boundHook struct {
	owner *Plugin
	fn    HookFunc
}

func (b *boundHook) Handle(ctx context.Context, deployment *Context) error {
	return b.fn(ctx, b.owner, deployment)
}

// PluginName reports the owning plugin for logging and metrics.
func (b *boundHook) PluginName() string {
	if b.owner == nil {
		return ""
	}
	return b.owner.Name
}

// HandlerSource returns the plugin name behind h, or "anonymous".
func HandlerSource(h Handler) string {
	if named, ok := h.(interface{ PluginName() string }); ok {
		if name := named.PluginName(); name != "" {
			return name
		}
	}
	return "anonymous"
}
