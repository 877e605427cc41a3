package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/registry"
	"github.com/vk/ifgrid/internal/testutil"
)

const carbonManifest = `name: carbon
initialize:
  plugins:
    sum-energy:
      method: Sum
      path: builtin
      global-config:
        input-parameters: [cpu/energy, network/energy]
        output-parameter: energy
    carbon:
      method: Multiply
      path: builtin
      global-config:
        input-parameters: [energy, intensity]
        output-parameter: carbon
      parameter-metadata:
        outputs:
          carbon:
            unit: gCO2e
            description: operational carbon
            aggregation-method:
              time: sum
              component: sum
aggregation:
  metrics: [carbon]
  type: both
explainer: true
tree:
  pipeline:
    compute: [sum-energy, carbon]
  defaults:
    intensity: 100
  children:
    a:
      inputs:
        - {timestamp: t0, cpu/energy: 1, network/energy: 1}
        - {timestamp: t1, cpu/energy: 2, network/energy: 0}
    b:
      inputs:
        - {timestamp: t0, cpu/energy: 0.5, network/energy: 0.5}
`

const failingManifest = `name: broken
initialize:
  plugins:
    sum-energy:
      method: Sum
      path: builtin
      global-config:
        input-parameters: [cpu/energy]
        output-parameter: energy
tree:
  children:
    a:
      pipeline:
        compute: [sum-energy]
      inputs:
        - {timestamp: t0}
`

// setupApp creates a new app instance for system testing.
func setupApp(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer) {
	t.Helper()

	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	testApp := NewApp(logBuffer, appConfig)
	testApp.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	t.Cleanup(func() {
		if os.Getenv("IFGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, logBuffer
}

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func leafOf(t *testing.T, m *manifest.Manifest, name string) *manifest.LeafNode {
	t.Helper()
	root, ok := m.Tree.(*manifest.GroupNode)
	require.True(t, ok)
	child, ok := root.Children.Get(name)
	require.True(t, ok, "child %s", name)
	leaf, ok := child.(*manifest.LeafNode)
	require.True(t, ok)
	return leaf
}

func float(t *testing.T, v any) float64 {
	t.Helper()
	f, ok := manifest.Float(v)
	require.True(t, ok, "%#v is not numeric", v)
	return f
}

func TestRun_ComputesAggregatesAndExplains(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "carbon.yaml", carbonManifest)
	a, logs := setupApp(t, Config{ManifestPath: path, Command: "ifgrid -m carbon.yaml"})

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), &out))

	result, err := manifest.DecodeYAML(out.Bytes())
	require.NoError(t, err)

	leafA := leafOf(t, result, "a")
	require.Len(t, leafA.Outputs, 2)
	assert.InDelta(t, 200.0, float(t, leafA.Outputs[0]["carbon"]), 1e-9)
	assert.InDelta(t, 100.0, float(t, leafA.Outputs[0]["intensity"]), 1e-9, "defaults are merged into inputs")
	assert.InDelta(t, 400.0, float(t, leafA.Aggregated()["aggregated-carbon"]), 1e-9)
	assert.InDelta(t, 500.0, float(t, result.Tree.Aggregated()["aggregated-carbon"]), 1e-9)

	require.Contains(t, result.Explain, "carbon")
	assert.Equal(t, []string{"carbon"}, result.Explain["carbon"].Plugins)
	assert.Equal(t, "gCO2e", result.Explain["carbon"].Unit)

	require.NotNil(t, result.Execution)
	assert.Equal(t, "success", result.Execution.Status)
	assert.Equal(t, "ifgrid -m carbon.yaml", result.Execution.Command)
	assert.Equal(t, "2024-01-02T03:04:05Z", result.Execution.Environment.DateTime)
	assert.Equal(t, Version, result.Execution.Environment.Version)

	assert.Contains(t, logs.String(), "run_id=")
}

func TestRun_FailureWritesExecutionBlock(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "broken.yaml", failingManifest)
	output := filepath.Join(dir, "result.yaml")
	a, _ := setupApp(t, Config{ManifestPath: path, OutputPath: output})

	err := a.Run(context.Background(), &bytes.Buffer{})
	require.ErrorIs(t, err, errs.ErrInputValidation)
	assert.Contains(t, err.Error(), "tree/a")

	data, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	result, decodeErr := manifest.DecodeYAML(data)
	require.NoError(t, decodeErr)
	require.NotNil(t, result.Execution)
	assert.Equal(t, "fail", result.Execution.Status)
	assert.Contains(t, result.Execution.Error, "InputValidationError")
	assert.Nil(t, leafOf(t, result, "a").Outputs, "failed runs keep the input tree")
}

func TestRun_PhaseSelection(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "carbon.yaml", carbonManifest)
	a, _ := setupApp(t, Config{ManifestPath: path, Observe: true})

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), &out))

	result, err := manifest.DecodeYAML(out.Bytes())
	require.NoError(t, err)
	assert.Nil(t, leafOf(t, result, "a").Outputs, "compute did not run")
	assert.Nil(t, result.Tree.Aggregated(), "aggregation follows the compute phase")
}

func TestRun_Directory(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "one.yaml", carbonManifest)
	writeManifest(t, dir, "two.yml", carbonManifest)
	outDir := filepath.Join(t.TempDir(), "results")
	metricsFile := filepath.Join(t.TempDir(), "ifgrid.prom")

	a, _ := setupApp(t, Config{ManifestPath: dir, OutputPath: outDir, MetricsFile: metricsFile, Concurrency: 2})
	require.NoError(t, a.Run(context.Background(), &bytes.Buffer{}))

	for _, name := range []string{"one.yaml", "two.yaml"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ifgrid_plugin_executions_total")
	assert.Contains(t, string(prom), `plugin="sum-energy"`)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	external := writeManifest(t, dir, "external.yaml", `name: external
initialize:
  plugins:
    teads:
      method: TeadsCurve
      path: "@grnsft/if-unofficial-plugins"
tree:
  pipeline:
    compute: [teads]
  inputs: [{cpu: 1}]
`)
	unparsable := writeManifest(t, dir, "bad.yaml", "name: [unterminated\n")
	empty := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
		wantMsg string
	}{
		{name: "external plugin path", path: external, wantErr: errs.ErrModelInitialization},
		{name: "unparsable manifest", path: unparsable, wantErr: errs.ErrManifestParse},
		{name: "empty directory", path: empty, wantMsg: "no manifests"},
		{name: "missing path", path: filepath.Join(dir, "nope.yaml"), wantMsg: "resolving manifests"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := setupApp(t, Config{ManifestPath: tc.path})
			err := a.Run(context.Background(), &bytes.Buffer{})
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestRun_CustomModules(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "cloud.yaml", `name: cloud
initialize:
  plugins:
    cloud:
      method: CloudMetadata
      path: builtin
tree:
  pipeline:
    observe: [cloud]
  inputs: [{instance-type: m5n.large}]
`)
	cfg, err := NewConfig(Config{ManifestPath: path, LogLevel: "debug"})
	require.NoError(t, err)
	denied := &testutil.SimpleModule{
		Method: "CloudMetadata",
		Factory: func(map[string]any) (registry.Plugin, error) {
			return registry.Func(func(context.Context, []manifest.Record, any) ([]manifest.Record, error) {
				return nil, errs.New(errs.ErrModelCredential, "no credentials for cloud provider")
			}), nil
		},
	}
	a := NewApp(&testutil.SafeBuffer{}, cfg, denied)

	var out bytes.Buffer
	err = a.Run(context.Background(), &out)
	require.ErrorIs(t, err, errs.ErrModelCredential)

	result, decodeErr := manifest.DecodeYAML(out.Bytes())
	require.NoError(t, decodeErr)
	assert.Equal(t, "fail", result.Execution.Status)
	assert.Contains(t, result.Execution.Error, "ModelCredentialError")
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err, "manifest path is required")

	_, err = NewConfig(Config{ManifestPath: "m.yaml", LogFormat: "xml"})
	assert.Error(t, err)

	_, err = NewConfig(Config{ManifestPath: "m.yaml", Concurrency: -1})
	assert.Error(t, err)

	cfg, err := NewConfig(Config{ManifestPath: "m.yaml", LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)
	assert.Equal(t, "m.yaml", cfg.ManifestPath)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
	assert.Contains(t, buf.String(), `"ifgrid_version":"`+Version+`"`)

	buf.Reset()
	logger = newLogger("", "text", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=INFO msg=shown ifgrid_version=")

	buf.Reset()
	newLogger("DEBUG", "text", &buf).Debug("case-insensitive")
	assert.Contains(t, buf.String(), "case-insensitive")
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "InputValidationError: bad", errorMessage(errs.New(errs.ErrInputValidation, "bad")))
	wrapped := errorMessage(fmt.Errorf("tree/a: %w", errs.New(errs.ErrGlobalConfig, "missing")))
	assert.Equal(t, "GlobalConfigError: tree/a: GlobalConfigError: missing", wrapped)
	assert.Equal(t, "Error: plain", errorMessage(errors.New("plain")))
}
