package manifest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vk/ifgrid/internal/errs"
)

// Manifest is a complete impact manifest: run context, plugin initialization
// and the tree itself.
type Manifest struct {
	Name        string
	Description string
	Tags        map[string]string
	Aggregation *Aggregation
	Explainer   bool
	Explain     map[string]ExplainedParameter
	Initialize  Initialize
	Execution   *Execution
	Tree        Node
}

// Aggregation selects the metrics to aggregate after computation.
type Aggregation struct {
	Metrics []string `yaml:"metrics" validate:"required,min=1,dive,required"`
	Type    string   `yaml:"type" validate:"required,oneof=horizontal vertical both"`
	Method  string   `yaml:"method,omitempty" validate:"omitempty,oneof=sum avg"`
}

// Initialize declares the plugins a manifest uses.
type Initialize struct {
	Plugins map[string]PluginOptions `yaml:"plugins,omitempty" validate:"dive"`
}

// PluginOptions tells the registry how to build one named plugin.
type PluginOptions struct {
	Method            string         `yaml:"method" validate:"required"`
	Path              string         `yaml:"path" validate:"required"`
	GlobalConfig      map[string]any `yaml:"global-config,omitempty"`
	ParameterMetadata *Metadata      `yaml:"parameter-metadata,omitempty" validate:"omitempty"`
}

// Metadata describes the parameters a plugin consumes and produces.
type Metadata struct {
	Inputs  map[string]ParameterMetadata `yaml:"inputs,omitempty" validate:"dive"`
	Outputs map[string]ParameterMetadata `yaml:"outputs,omitempty" validate:"dive"`
}

// ParameterMetadata documents a single parameter.
type ParameterMetadata struct {
	Description       string            `yaml:"description,omitempty"`
	Unit              string            `yaml:"unit"`
	AggregationMethod AggregationMethod `yaml:"aggregation-method"`
}

// AggregationMethod is how a parameter aggregates over time and across components.
type AggregationMethod struct {
	Time      string `yaml:"time" validate:"omitempty,oneof=sum avg none copy"`
	Component string `yaml:"component" validate:"omitempty,oneof=sum avg none copy"`
}

// ExplainedParameter is one entry of the explain section of a result manifest.
type ExplainedParameter struct {
	Plugins           []string          `yaml:"plugins"`
	Unit              string            `yaml:"unit"`
	Description       string            `yaml:"description,omitempty"`
	AggregationMethod AggregationMethod `yaml:"aggregation-method"`
}

// Execution records how a result manifest was produced.
type Execution struct {
	Status      string       `yaml:"status"`
	Command     string       `yaml:"command,omitempty"`
	Environment *Environment `yaml:"environment,omitempty"`
	Error       string       `yaml:"error,omitempty"`
}

// Environment describes the process that produced a result manifest.
type Environment struct {
	Version   string `yaml:"ifgrid-version"`
	OS        string `yaml:"os"`
	Arch      string `yaml:"arch"`
	GoVersion string `yaml:"go-version"`
	DateTime  string `yaml:"date-time"`
}

var validate = validator.New()

// ValidateMetadata checks that every aggregation method named in meta is one
// of sum, avg, none or copy.
func ValidateMetadata(meta *Metadata) error {
	if meta == nil {
		return nil
	}
	return validate.Struct(meta)
}

// Validate checks the manifest sections that have a fixed schema.
func (m *Manifest) Validate() error {
	if m.Tree == nil {
		return errs.New(errs.ErrManifestValidation, "manifest %q has no tree", m.Name)
	}
	if m.Aggregation != nil {
		if err := validate.Struct(m.Aggregation); err != nil {
			return fmt.Errorf("%w: aggregation: %v", errs.ErrManifestValidation, err)
		}
	}
	if err := validate.Struct(m.Initialize); err != nil {
		return fmt.Errorf("%w: initialize: %v", errs.ErrManifestValidation, err)
	}
	return nil
}
