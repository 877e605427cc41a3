package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// BuiltinPath is the only plugin path Initialize resolves.
const BuiltinPath = "builtin"

// Factory builds a plugin from its manifest global config.
type Factory func(globalConfig map[string]any) (Plugin, error)

// Factories maps a manifest `method` to the factory that builds it.
type Factories map[string]Factory

// Module is implemented by every compiled-in plugin package.
type Module interface {
	Register(f Factories)
}

// Add registers a factory under method. Duplicates panic.
func (f Factories) Add(method string, factory Factory) {
	if _, exists := f[method]; exists {
		panic(fmt.Sprintf("plugin method '%s' already registered", method))
	}
	f[method] = factory
}

// NewFactories collects the factories of the given modules.
func NewFactories(modules ...Module) Factories {
	f := make(Factories)
	for _, m := range modules {
		m.Register(f)
	}
	return f
}

// Initialize builds a Static registry from a manifest's plugin declarations.
// Manifest-provided parameter metadata replaces the plugin's own.
func Initialize(ctx context.Context, plugins map[string]manifest.PluginOptions, factories Factories) (*Static, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Initializing plugins.", "count", len(plugins))

	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := New()
	for _, name := range names {
		opts := plugins[name]
		logger.Debug("Initializing plugin instance.", "plugin", name, "method", opts.Method, "path", opts.Path)

		if opts.Path != BuiltinPath {
			return nil, errs.New(errs.ErrModelInitialization, "Provided module `%s` is invalid or not found for plugin %s. Only %q plugins can be resolved.", opts.Path, name, BuiltinPath)
		}
		factory, ok := factories[opts.Method]
		if !ok {
			return nil, errs.New(errs.ErrModelInitialization, "plugin %s: unknown method %q", name, opts.Method)
		}

		p, err := factory(manifest.CloneConfig(opts.GlobalConfig))
		if err != nil {
			return nil, fmt.Errorf("initializing plugin %s: %w", name, err)
		}
		if opts.ParameterMetadata != nil {
			p = WithMetadata(p, opts.ParameterMetadata)
		}
		reg.Register(name, p)
	}

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Info("Plugins initialized.", "plugins", reg.Names())
	return reg, nil
}
