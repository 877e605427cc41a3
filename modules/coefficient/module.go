package coefficient

import (
	"context"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/plugincfg"
	"github.com/vk/ifgrid/internal/registry"
)

// Method is the `method` name used in `initialize.plugins`.
const Method = "Coefficient"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the plugin's global config.
type Config struct {
	Coefficient     float64 `cty:"coefficient"`
	InputParameter  string  `cty:"input-parameter" validate:"required"`
	OutputParameter string  `cty:"output-parameter" validate:"required"`
}

// Plugin multiplies input-parameter by a constant coefficient.
type Plugin struct {
	global map[string]any
}

// New is the registry.Factory for Coefficient.
func New(globalConfig map[string]any) (registry.Plugin, error) {
	return &Plugin{global: globalConfig}, nil
}

// Execute implements registry.Plugin.
func (p *Plugin) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	merged := plugincfg.Merge(p.global, config)
	if len(merged) == 0 {
		return nil, errs.New(errs.ErrGlobalConfig, "Config is not provided.")
	}
	if _, ok := merged["coefficient"]; !ok {
		return nil, errs.New(errs.ErrGlobalConfig, "coefficient is required")
	}
	var cfg Config
	if err := plugincfg.Decode(ctx, merged, &cfg); err != nil {
		return nil, err
	}

	out := make([]manifest.Record, len(inputs))
	for i, input := range inputs {
		v, ok := manifest.Float(input[cfg.InputParameter])
		if !ok {
			return nil, errs.New(errs.ErrInputValidation, "%s is missing from the input array, or has nullish value (inputs[%d]).", cfg.InputParameter, i)
		}
		r := input.Clone()
		r[cfg.OutputParameter] = v * cfg.Coefficient
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
