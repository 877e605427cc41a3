package manifest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"gopkg.in/yaml.v3"
)

// Extensions lists the manifest file extensions Load understands.
var Extensions = []string{".yaml", ".yml", ".hcl"}

// Load reads and validates a manifest file, choosing the codec by extension.
func Load(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading manifest.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err = DecodeYAML(data)
	case ".hcl":
		m, err = DecodeHCL(data, path)
	default:
		return nil, errs.New(errs.ErrManifestParse, "unsupported manifest extension %q in %s", filepath.Ext(path), path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}

	logger.Debug("Validating manifest.", "name", m.Name)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeYAML decodes a YAML manifest document.
func DecodeYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrManifestParse, err)
	}
	return &m, nil
}

// Write encodes m as YAML.
func Write(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest %q: %w", m.Name, err)
	}
	return enc.Close()
}
