package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/ifgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		cfg    app.Config
		parsed *app.Config
	)
	cmd := &cobra.Command{
		Use:   "ifgrid [flags] [MANIFEST_PATH]",
		Short: "Compute environmental impact over a manifest tree",
		Long: `ifgrid walks the tree of an impact manifest, running the observe, regroup
and compute phases of every leaf pipeline, aggregates the selected metrics and
writes the result manifest.

MANIFEST_PATH is a single .yaml, .yml or .hcl manifest, or a directory
containing them.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, positional []string) error {
			if cfg.ManifestPath == "" && len(positional) > 0 {
				cfg.ManifestPath = positional[0]
			}
			slog.Debug("Manifest path determined.", "path", cfg.ManifestPath)
			if cfg.ManifestPath == "" {
				slog.Debug("No manifest path provided, printing usage and exiting.")
				return cmd.Usage()
			}

			cfg.LogFormat = strings.ToLower(cfg.LogFormat)
			cfg.LogLevel = strings.ToLower(cfg.LogLevel)
			cfg.Command = strings.TrimSpace("ifgrid " + strings.Join(args, " "))

			c, err := app.NewConfig(cfg)
			if err != nil {
				return err
			}
			parsed = c
			return nil
		},
	}
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	f := cmd.Flags()
	f.StringVarP(&cfg.ManifestPath, "manifest", "m", "", "Path to the manifest file or directory.")
	f.StringVarP(&cfg.OutputPath, "output", "o", "", "Path of the result manifest. Printed to stdout when empty.")
	f.BoolVar(&cfg.Observe, "observe", false, "Run the observe phase. Without any phase flag every phase runs.")
	f.BoolVar(&cfg.Regroup, "regroup", false, "Run the regroup phase.")
	f.BoolVar(&cfg.Compute, "compute", false, "Run the compute phase.")
	f.BoolVar(&cfg.Append, "append", false, "Append newly computed outputs to the existing ones.")
	f.IntVar(&cfg.Concurrency, "concurrency", 1, "Number of sibling subtrees computed in parallel.")
	f.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write plugin execution metrics in Prometheus text format to this file.")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if parsed == nil {
		// Help, version or usage was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", parsed)
	return parsed, false, nil
}
