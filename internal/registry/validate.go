package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// Validate checks the parameter metadata advertised by every registered
// plugin. Plugins without metadata are accepted with a warning because they
// cannot take part in explain consistency checks.
func (r *Static) Validate(ctx context.Context) error {
	var problems []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		meta := MetadataOf(r.plugins[name])
		if meta == nil {
			logger.Warn("Plugin has no parameter metadata; it will be omitted from explain data.", "plugin", name)
			continue
		}
		if err := manifest.ValidateMetadata(meta); err != nil {
			problems = append(problems, fmt.Sprintf("plugin '%s': %v", name, err))
			continue
		}
		for param, pm := range meta.Outputs {
			if pm.Unit == "" {
				problems = append(problems, fmt.Sprintf("plugin '%s': output '%s' declares no unit", name, param))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: registry validation failed:\n- %s", errs.ErrManifestValidation, strings.Join(problems, "\n- "))
	}
	return nil
}
