package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// Plugin is one computation unit. Execute may block and may return a
// different number of records than it received. config is the node-level
// config threaded to this plugin, or nil.
type Plugin interface {
	Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error)
}

// MetadataProvider is implemented by plugins that describe their parameters.
type MetadataProvider interface {
	Metadata() *manifest.Metadata
}

// Registry resolves a plugin name to a Plugin.
type Registry interface {
	Get(name string) (Plugin, error)
}

// Func adapts a function to the Plugin interface.
type Func func(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	return f(ctx, inputs, config)
}

// MetadataOf returns the plugin's metadata, or nil if it has none.
func MetadataOf(p Plugin) *manifest.Metadata {
	if mp, ok := p.(MetadataProvider); ok {
		return mp.Metadata()
	}
	return nil
}

// WithMetadata wraps p so that it reports meta instead of its own metadata.
func WithMetadata(p Plugin, meta *manifest.Metadata) Plugin {
	return &describedPlugin{Plugin: p, meta: meta}
}

type describedPlugin struct {
	Plugin
	meta *manifest.Metadata
}

func (d *describedPlugin) Metadata() *manifest.Metadata { return d.meta }

// Static is a Registry backed by a fixed name → Plugin map.
type Static struct {
	plugins map[string]Plugin
}

// New creates an empty Static registry.
func New() *Static {
	return &Static{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under name. Registering the same name twice is a
// programming error and panics.
func (r *Static) Register(name string, p Plugin) {
	if _, exists := r.plugins[name]; exists {
		panic(fmt.Sprintf("plugin with name '%s' already registered", name))
	}
	slog.Debug("Registering plugin.", "name", name)
	r.plugins[name] = p
}

// Get implements Registry.
func (r *Static) Get(name string) (Plugin, error) {
	p, ok := r.plugins[name]
	if !ok {
		return nil, errs.New(errs.ErrModelInitialization, "Not initialized plugin: %s. Check if %s is in 'initialize.plugins'.", name, name)
	}
	return p, nil
}

// Names returns the registered plugin names, sorted.
func (r *Static) Names() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
