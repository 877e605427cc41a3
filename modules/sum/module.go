package sum

import (
	"context"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/plugincfg"
	"github.com/vk/ifgrid/internal/registry"
)

// Method is the `method` name used in `initialize.plugins`.
const Method = "Sum"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config is the plugin's global config.
type Config struct {
	InputParameters []string `cty:"input-parameters" validate:"required,min=1,dive,required"`
	OutputParameter string   `cty:"output-parameter" validate:"required"`
}

// Plugin adds up input-parameters into output-parameter on every record.
type Plugin struct {
	global map[string]any
}

// New is the registry.Factory for Sum.
func New(globalConfig map[string]any) (registry.Plugin, error) {
	return &Plugin{global: globalConfig}, nil
}

// Execute implements registry.Plugin.
func (p *Plugin) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	var cfg Config
	if err := plugincfg.Decode(ctx, plugincfg.Merge(p.global, config), &cfg); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Summing parameters.", "inputs", cfg.InputParameters, "output", cfg.OutputParameter, "records", len(inputs))

	out := make([]manifest.Record, len(inputs))
	for i, input := range inputs {
		total := 0.0
		for _, param := range cfg.InputParameters {
			v, ok := manifest.Float(input[param])
			if !ok {
				return nil, errs.New(errs.ErrInputValidation, "%s is missing from the input array, or has nullish value (inputs[%d]).", param, i)
			}
			total += v
		}
		r := input.Clone()
		r[cfg.OutputParameter] = total
		out[i] = r
	}
	return out, nil
}

// Metadata implements registry.MetadataProvider. Sum does not know the units
// of the parameters it adds; manifests describe them via parameter-metadata.
func (p *Plugin) Metadata() *manifest.Metadata {
	return &manifest.Metadata{}
}

// Register registers the factory with the registry.
func (m *Module) Register(f registry.Factories) {
	f.Add(Method, New)
}
