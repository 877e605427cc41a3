package multiply

import (
	"context"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/plugincfg"
	"github.com/vk/ifgrid/internal/registry"
)

// Method is the `method` name used in `initialize.plugins`.
const Method = "Multiply"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the plugin's global config.
type Config struct {
	InputParameters []string `cty:"input-parameters" validate:"required,min=1,dive,required"`
	OutputParameter string   `cty:"output-parameter" validate:"required"`
}

// Plugin writes the product of input-parameters to output-parameter.
type Plugin struct {
	global map[string]any
}

// New is the registry.Factory for Multiply.
func New(globalConfig map[string]any) (registry.Plugin, error) {
	return &Plugin{global: globalConfig}, nil
}

// Execute implements registry.Plugin.
func (p *Plugin) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	var cfg Config
	if err := plugincfg.Decode(ctx, plugincfg.Merge(p.global, config), &cfg); err != nil {
		return nil, err
	}

	out := make([]manifest.Record, len(inputs))
	for i, input := range inputs {
		product := 1.0
		for _, param := range cfg.InputParameters {
			v, ok := manifest.Float(input[param])
			if !ok {
				return nil, errs.New(errs.ErrInputValidation, "%s is missing from the input array, or has nullish value (inputs[%d]).", param, i)
			}
			product *= v
		}
		r := input.Clone()
		r[cfg.OutputParameter] = product
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
