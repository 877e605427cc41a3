// Package compute walks an impact tree and runs the observe, regroup and
// compute phases of every leaf's pipeline.
//
// A node uses its own pipeline, defaults and config when present and
// otherwise inherits them from its parent. Group nodes never run phases;
// their children are visited in manifest order. A leaf whose regroup phase
// partitions its data becomes a group node and its new children are visited
// straight away with the remaining phases.
package compute

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/explain"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/metrics"
	"github.com/vk/ifgrid/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Options configures a single Compute run.
type Options struct {
	// Registry resolves plugin names. Required.
	Registry registry.Registry
	// Phases restricts the phases executed. The zero value runs all of them.
	Phases PhaseSet
	// Append keeps existing outputs and adds the newly computed ones after them.
	Append bool
	// Explainer records plugin metadata into Explain.
	Explainer bool
	// Explain receives plugin metadata when Explainer is set. When nil, a
	// run-local store is used so consistency checks still apply.
	Explain *explain.Store
	// Metrics receives plugin timings. Defaults to metrics.Nop.
	Metrics metrics.Recorder
	// Concurrency above one visits sibling subtrees in parallel.
	Concurrency int
}

// scope is what a node hands down to its children.
type scope struct {
	pipeline *manifest.PhasedPipeline
	defaults manifest.Record
	config   map[string]any
	// regrouped is set below a regroup handoff, where an empty pipeline is
	// expected and not worth a warning.
	regrouped bool
}

// frame locates a node during the walk. trail is the full name path used
// for logs and errors; path is the grouping lineage checked by regroup and
// is reset by every node that declares its own pipeline. A non-nil explain
// buffers the subtree's explain writes instead of sending them to the store.
type frame struct {
	trail   []string
	path    []string
	root    bool
	explain *explainLog
}

func (f frame) child(name string) frame {
	return frame{
		trail:   appendCopy(f.trail, name),
		path:    appendCopy(f.path, name),
		explain: f.explain,
	}
}

func (f frame) String() string {
	if len(f.trail) == 0 {
		return "tree"
	}
	return "tree/" + strings.Join(f.trail, "/")
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

type walker struct {
	opts Options
}

// Compute runs the pipeline of every leaf in tree and returns the resulting
// tree. tree itself is never modified. The first error aborts the run.
func Compute(ctx context.Context, tree manifest.Node, opts Options) (manifest.Node, error) {
	if tree == nil {
		return nil, errs.New(errs.ErrStructureMalformed, "tree is missing")
	}
	if opts.Phases == 0 {
		opts.Phases = AllPhases
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Explainer && opts.Explain == nil {
		opts.Explain = explain.New("")
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Computing tree.", "phases", opts.Phases.String(), "append", opts.Append, "explainer", opts.Explainer, "concurrency", opts.Concurrency)

	w := &walker{opts: opts}
	out, err := w.visit(ctx, tree.Clone(), frame{root: true}, scope{})
	if err != nil {
		return nil, err
	}
	logger.Debug("Tree computed.")
	return out, nil
}

// visit resolves the node's scope and either descends into its children or
// runs its phases. It returns the node that should take its place, which
// differs from node only when a leaf was regrouped.
func (w *walker) visit(ctx context.Context, node manifest.Node, f frame, inherited scope) (manifest.Node, error) {
	own := node.NodeScope()
	resolved := inherited
	if own.Pipeline != nil {
		resolved.pipeline = own.Pipeline
		f.path = nil
	}
	if own.Defaults != nil {
		resolved.defaults = own.Defaults
	}
	if own.Config != nil {
		w.warnNodeConfig(ctx, f, own.Config)
		resolved.config = own.Config
	}

	switch n := node.(type) {
	case *manifest.GroupNode:
		if err := w.visitChildren(ctx, n, f, resolved); err != nil {
			return nil, err
		}
		return n, nil
	case *manifest.LeafNode:
		return w.runLeaf(ctxlog.With(ctx, "node", f.String()), n, f, resolved)
	default:
		return node, nil
	}
}

// visitChildren visits every child of g and stores the returned nodes back in
// the same order. With Concurrency above one, siblings run in parallel. Each
// sibling buffers its explain writes, and the buffers are replayed in
// manifest order afterwards, so the store contents and the reported error
// are the ones a sequential walk produces.
func (w *walker) visitChildren(ctx context.Context, g *manifest.GroupNode, f frame, s scope) error {
	names := g.Children.Names()
	results := make([]manifest.Node, len(names))

	if w.opts.Concurrency <= 1 || len(names) < 2 {
		for i, name := range names {
			child, _ := g.Children.Get(name)
			out, err := w.visit(ctx, child, f.child(name), s)
			if err != nil {
				return err
			}
			results[i] = out
		}
	} else {
		failures := make([]error, len(names))
		logs := make([]*explainLog, len(names))
		var eg errgroup.Group
		eg.SetLimit(w.opts.Concurrency)
		for i, name := range names {
			child, _ := g.Children.Get(name)
			cf := f.child(name)
			if w.opts.Explainer {
				logs[i] = &explainLog{}
				cf.explain = logs[i]
			}
			eg.Go(func() error {
				results[i], failures[i] = w.visit(ctx, child, cf, s)
				return nil
			})
		}
		_ = eg.Wait()
		for i := range names {
			if err := w.replay(f, logs[i]); err != nil {
				return err
			}
			if failures[i] != nil {
				return failures[i]
			}
		}
	}

	for i, name := range names {
		g.Children.Set(name, results[i])
	}
	return nil
}

func (w *walker) warnNodeConfig(ctx context.Context, f frame, cfg map[string]any) {
	logger := ctxlog.FromContext(ctx)
	if f.root {
		logger.Warn("You have included node-level config in your manifest. Node-level config is no longer supported; the manifest should be refactored to take its config from initialize or input data.")
		return
	}
	plugins := make([]string, 0, len(cfg))
	for name := range cfg {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)
	logger.Warn("You have included node-level config in your manifest to support plugins. Node-level config is no longer supported; these plugins should be refactored to take their config from initialize or input data.",
		"node", f.String(), "plugins", strings.Join(plugins, ", "))
}

// explainEntry is one deferred explain store write.
type explainEntry struct {
	node   string
	plugin string
	meta   *manifest.Metadata
}

// explainLog collects the explain writes of one subtree visited in parallel.
// It is only touched by the goroutine walking that subtree.
type explainLog struct {
	entries []explainEntry
}

// recordExplain sends a plugin's metadata to the store, or to f's buffer when
// the node is part of a parallel visit.
func (w *walker) recordExplain(f frame, plugin string, meta *manifest.Metadata) error {
	if f.explain != nil {
		f.explain.entries = append(f.explain.entries, explainEntry{node: f.String(), plugin: plugin, meta: meta})
		return nil
	}
	return w.opts.Explain.Add(plugin, meta)
}

// replay forwards a child's buffered writes to the sink of f in recording
// order. A store conflict is reported against the node that ran the plugin.
func (w *walker) replay(f frame, log *explainLog) error {
	if log == nil {
		return nil
	}
	if f.explain != nil {
		f.explain.entries = append(f.explain.entries, log.entries...)
		return nil
	}
	for _, e := range log.entries {
		if err := w.opts.Explain.Add(e.plugin, e.meta); err != nil {
			return fmt.Errorf("%s: %w", e.node, err)
		}
	}
	return nil
}
