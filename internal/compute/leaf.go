package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/registry"
	"github.com/vk/ifgrid/internal/regroup"
)

// runLeaf executes the requested phases on leaf. It writes intermediate
// results back to the leaf after every plugin so a failure leaves the
// progress made so far visible on the node.
func (w *walker) runLeaf(ctx context.Context, leaf *manifest.LeafNode, f frame, s scope) (manifest.Node, error) {
	logger := ctxlog.FromContext(ctx)
	pipeline := s.pipeline.Clone()
	if pipeline.IsEmpty() && !s.regrouped {
		logger.Warn("Pipeline is empty; the node is passed through unchanged. Declare observe, regroup or compute phases for phased execution.")
	}
	if pipeline == nil {
		pipeline = &manifest.PhasedPipeline{}
	}

	if leaf.Inputs == nil && leaf.Outputs == nil && len(pipeline.Observe) == 0 && len(pipeline.Compute) == 0 {
		return nil, errs.New(errs.ErrStructureMalformed, "%s: `inputs` are missing and no observe or compute plugin can produce them", f)
	}

	buffer := manifest.CloneRecords(leaf.Inputs)
	merged := false

	if w.opts.Phases.Has(PhaseObserve) && len(pipeline.Observe) > 0 {
		for len(pipeline.Observe) > 0 {
			name := pipeline.Observe[0]
			pipeline.Observe = pipeline.Observe[1:]
			logger.Debug("Running observe pipeline.", "plugin", name)

			out, err := w.execute(ctx, f, PhaseObserve, name, buffer, s.config)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			buffer = out
			leaf.Inputs = manifest.CloneRecords(buffer)
		}
		logger.Debug("Merging defaults with input data.")
		buffer = MergeDefaults(buffer, s.defaults)
		merged = true
	}
	if !merged && len(buffer) > 0 {
		buffer = MergeDefaults(buffer, s.defaults)
	}

	if w.opts.Phases.Has(PhaseRegroup) && pipeline.Regroup != nil {
		keys := pipeline.Regroup
		if err := regroup.ValidateKeys(keys); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}

		if regroup.IsRegrouped(keys, buffer, f.path) {
			logger.Info("Already correctly grouped - skipping regrouping.", "keys", keys)
			w.opts.Metrics.NodeRegrouped(true)
		} else {
			return w.regroupLeaf(ctx, leaf, f, s, pipeline, buffer)
		}
	}

	if w.opts.Phases.Has(PhaseCompute) && len(pipeline.Compute) > 0 {
		var snapshot []manifest.Record
		if w.opts.Append {
			snapshot = manifest.CloneRecords(leaf.Outputs)
		}

		for len(pipeline.Compute) > 0 {
			name := pipeline.Compute[0]
			pipeline.Compute = pipeline.Compute[1:]
			logger.Debug("Running compute pipeline.", "plugin", name)

			wasEmpty := len(buffer) == 0
			out, err := w.execute(ctx, f, PhaseCompute, name, buffer, s.config)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			buffer = out
			if wasEmpty && len(buffer) > 0 {
				buffer = MergeDefaults(buffer, s.defaults)
			}
			leaf.Outputs = manifest.CloneRecords(buffer)
		}

		if w.opts.Append && len(snapshot) > 0 {
			leaf.Outputs = append(snapshot, leaf.Outputs...)
		}
	}

	return leaf, nil
}

// regroupLeaf turns leaf into a group node keyed by the pipeline's regroup
// fields and visits the new children with the regroup phase removed and the
// observe phase consumed.
func (w *walker) regroupLeaf(ctx context.Context, leaf *manifest.LeafNode, f frame, s scope, pipeline *manifest.PhasedPipeline, buffer []manifest.Record) (manifest.Node, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Regrouping.", "keys", pipeline.Regroup)

	var existing []manifest.Record
	if w.opts.Append {
		existing = leaf.Outputs
	}
	children, err := regroup.Regroup(buffer, existing, pipeline.Regroup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f, err)
	}
	w.opts.Metrics.NodeRegrouped(false)

	group := &manifest.GroupNode{Scope: leaf.Scope, Children: children}

	next := s
	next.pipeline = &manifest.PhasedPipeline{Compute: pipeline.Compute}
	next.regrouped = true
	if err := w.visitChildren(ctx, group, f, next); err != nil {
		return nil, err
	}
	return group, nil
}

// execute resolves and runs one plugin. Node-level config is looked up by
// plugin name and copied so plugins cannot alter the tree's scope.
func (w *walker) execute(ctx context.Context, f frame, phase Phase, name string, buffer []manifest.Record, config map[string]any) ([]manifest.Record, error) {
	plugin, err := w.opts.Registry.Get(name)
	if err != nil {
		return nil, err
	}

	var pluginConfig any
	if v, ok := config[name]; ok {
		if m, ok := v.(map[string]any); ok {
			pluginConfig = manifest.CloneConfig(m)
		} else {
			pluginConfig = v
		}
	}

	start := time.Now()
	out, err := plugin.Execute(ctx, buffer, pluginConfig)
	w.opts.Metrics.PluginExecuted(name, phase.String(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	if out == nil {
		out = []manifest.Record{}
	}

	if w.opts.Explainer {
		meta := registry.MetadataOf(plugin)
		if meta == nil {
			ctxlog.FromContext(ctx).Warn("Plugin has no parameter metadata; it is left out of explain data.", "plugin", name)
		} else if err := w.recordExplain(f, name, meta); err != nil {
			return nil, err
		}
	}
	return out, nil
}
