package copyparam

import (
	"context"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/plugincfg"
	"github.com/vk/ifgrid/internal/registry"
)

// Method is the `method` name used in `initialize.plugins`.
const Method = "Copy"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the plugin's global config. When KeepExisting is false the
// source parameter is removed after copying.
type Config struct {
	KeepExisting bool   `cty:"keep-existing"`
	From         string `cty:"from" validate:"required"`
	To           string `cty:"to" validate:"required"`
}

// Plugin copies one parameter of every record to another name.
type Plugin struct {
	global map[string]any
}

// New is the registry.Factory for Copy.
func New(globalConfig map[string]any) (registry.Plugin, error) {
	return &Plugin{global: globalConfig}, nil
}

// Execute implements registry.Plugin.
func (p *Plugin) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	merged := plugincfg.Merge(p.global, config)
	if len(merged) == 0 {
		return nil, errs.New(errs.ErrGlobalConfig, "Config is not provided.")
	}
	var cfg Config
	if err := plugincfg.Decode(ctx, merged, &cfg); err != nil {
		return nil, err
	}

	out := make([]manifest.Record, len(inputs))
	for i, input := range inputs {
		v, ok := input[cfg.From]
		if !ok || v == nil {
			return nil, errs.New(errs.ErrInputValidation, "%s is missing from the input array, or has nullish value (inputs[%d]).", cfg.From, i)
		}
		r := input.Clone()
		if !cfg.KeepExisting {
			delete(r, cfg.From)
		}
		r[cfg.To] = v
		out[i] = r
	}
	return out, nil
}

// Metadata implements registry.MetadataProvider.
func (p *Plugin) Metadata() *manifest.Metadata {
	return &manifest.Metadata{}
}

// Register registers the factory with the registry.
func (m *Module) Register(f registry.Factories) {
	f.Add(Method, New)
}
