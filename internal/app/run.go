package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/ifgrid/internal/aggregate"
	"github.com/vk/ifgrid/internal/compute"
	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/explain"
	"github.com/vk/ifgrid/internal/fsutil"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/metrics"
	"github.com/vk/ifgrid/internal/registry"
)

// Run processes every manifest found at the configured path. Result manifests
// are written to the configured output path, or to resultW when none is set.
// A failing manifest still produces a result carrying a failed execution
// block, and Run stops at the first failure.
func (a *App) Run(ctx context.Context, resultW io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	paths, err := fsutil.ResolvePaths(a.config.ManifestPath, manifest.Extensions...)
	if err != nil {
		return fmt.Errorf("resolving manifests: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no manifests (%s) found in %s", strings.Join(manifest.Extensions, ", "), a.config.ManifestPath)
	}
	a.logger.Info("Manifests discovered.", "count", len(paths))

	var runErr error
	for i, path := range paths {
		result, err := a.runManifest(ctx, path)
		if result != nil {
			if werr := a.writeResult(resultW, path, i, len(paths), result); werr != nil {
				return werr
			}
		}
		if err != nil {
			runErr = fmt.Errorf("manifest %s: %w", path, err)
			break
		}
	}

	if a.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.config.MetricsFile, a.gatherer); err != nil {
			a.logger.Error("Failed to write metrics file.", "path", a.config.MetricsFile, "error", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return runErr
}

// runManifest loads and computes a single manifest. The returned manifest is
// nil only when loading failed.
func (a *App) runManifest(ctx context.Context, path string) (*manifest.Manifest, error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID, "manifest", path)
	logger := ctxlog.FromContext(ctx)
	started := a.now()

	m, err := manifest.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	logger.Info("🚀 Starting manifest run.", "name", m.Name, "phases", a.phases().String())
	err = a.process(ctx, m, runID)
	m.Execution = a.execution(started, err)
	if err != nil {
		logger.Error("Manifest run failed.", "error", err)
		return m, err
	}
	logger.Info("🏁 Manifest run finished.", "took", a.now().Sub(started))
	return m, nil
}

// process runs the engine over m and stores the results back into it. The
// tree is only replaced when every step succeeded.
func (a *App) process(ctx context.Context, m *manifest.Manifest, runID string) error {
	reg, err := registry.Initialize(ctx, m.Initialize.Plugins, a.factories)
	if err != nil {
		return err
	}

	store := explain.New(runID)
	phases := a.phases()
	tree, err := compute.Compute(ctx, m.Tree, compute.Options{
		Registry:    reg,
		Phases:      phases,
		Append:      a.config.Append,
		Explainer:   m.Explainer,
		Explain:     store,
		Metrics:     a.recorder,
		Concurrency: a.config.Concurrency,
	})
	if err != nil {
		return err
	}

	if params, ok := aggregate.FromManifest(m.Aggregation); ok && phases.Has(compute.PhaseCompute) {
		if err := params.Validate(); err != nil {
			return err
		}
		tree, err = aggregate.Tree(ctx, tree, params)
		if err != nil {
			return err
		}
	}

	m.Tree = tree
	if m.Explainer {
		m.Explain = store.Parameters()
	}
	return nil
}

func (a *App) phases() compute.PhaseSet {
	return compute.ParsePhases(a.config.Observe, a.config.Regroup, a.config.Compute)
}

func (a *App) execution(started time.Time, err error) *manifest.Execution {
	exec := &manifest.Execution{
		Status:  "success",
		Command: a.config.Command,
		Environment: &manifest.Environment{
			Version:   Version,
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			GoVersion: runtime.Version(),
			DateTime:  started.UTC().Format(time.RFC3339),
		},
	}
	if err != nil {
		exec.Status = "fail"
		exec.Error = errorMessage(err)
	}
	return exec
}

// errorMessage prefixes err with its taxonomy class unless it already leads
// with it.
func errorMessage(err error) string {
	name, msg := errs.Name(err), err.Error()
	if strings.HasPrefix(msg, name) {
		return msg
	}
	return name + ": " + msg
}

// writeResult sends the i-th of n results to the configured output. With
// several manifests the output path names a directory.
func (a *App) writeResult(resultW io.Writer, source string, i, n int, m *manifest.Manifest) error {
	if a.config.OutputPath == "" {
		if i > 0 {
			if _, err := io.WriteString(resultW, "---\n"); err != nil {
				return err
			}
		}
		return manifest.Write(resultW, m)
	}

	target := a.config.OutputPath
	if n > 1 {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		target = filepath.Join(target, base+".yaml")
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	if err := manifest.Write(f, m); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	a.logger.Info("Result manifest written.", "path", target)
	return nil
}
