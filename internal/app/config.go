package app

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string `validate:"required"` // manifest file or directory
	OutputPath   string // result file, or directory when ManifestPath holds several manifests

	Observe     bool
	Regroup     bool
	Compute     bool
	Append      bool
	Concurrency int `validate:"gte=0"`

	LogFormat   string `validate:"omitempty,oneof=text json"`
	LogLevel    string `validate:"omitempty,oneof=debug info warn error"`
	MetricsFile string // Prometheus textfile written after the run, if set

	// Command is recorded in the execution block of result manifests.
	Command string
}

var validate = validator.New()

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
