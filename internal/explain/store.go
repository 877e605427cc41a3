// Package explain collects the parameter metadata of every plugin executed
// during one run and checks it for consistency across the whole run.
package explain

import (
	"sort"
	"sync"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// Store is created at the start of a run and discarded at its end. It is
// safe for concurrent use; writes are serialized.
type Store struct {
	runID string

	mu         sync.Mutex
	parameters map[string]*manifest.ExplainedParameter
	plugins    map[string]*manifest.Metadata
}

// New returns an empty store for the given run.
func New(runID string) *Store {
	return &Store{
		runID:      runID,
		parameters: make(map[string]*manifest.ExplainedParameter),
		plugins:    make(map[string]*manifest.Metadata),
	}
}

// RunID returns the id of the run the store belongs to.
func (s *Store) RunID() string { return s.runID }

// Add records the metadata reported by pluginName. Every parameter is
// checked against what earlier plugins of the run reported: a different unit
// or a different time/component aggregation method fails with
// errs.ErrManifestValidation and leaves the store unchanged.
func (s *Store) Add(pluginName string, meta *manifest.Metadata) error {
	if meta == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	params := mergedParameters(meta)
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		existing, ok := s.parameters[name]
		if !ok || containsString(existing.Plugins, pluginName) {
			continue
		}
		incoming := params[name]
		if incoming.Unit != existing.Unit {
			return errs.New(errs.ErrManifestValidation, "Unit of the parameter `%s` does not match across plugins (%q vs %q).", name, existing.Unit, incoming.Unit)
		}
		if incoming.AggregationMethod.Time != existing.AggregationMethod.Time ||
			incoming.AggregationMethod.Component != existing.AggregationMethod.Component {
			return errs.New(errs.ErrManifestValidation, "Aggregation methods of the parameter `%s` do not match across plugins.", name)
		}
	}

	for _, name := range names {
		incoming := params[name]
		existing, ok := s.parameters[name]
		if !ok {
			s.parameters[name] = &manifest.ExplainedParameter{
				Plugins:           []string{pluginName},
				Unit:              incoming.Unit,
				Description:       incoming.Description,
				AggregationMethod: incoming.AggregationMethod,
			}
			continue
		}
		if containsString(existing.Plugins, pluginName) {
			continue
		}
		existing.Plugins = append(existing.Plugins, pluginName)
		if incoming.Description != "" {
			existing.Description = incoming.Description
		}
	}

	s.plugins[pluginName] = cloneMetadata(meta)
	return nil
}

// Parameters returns a copy of the explain data keyed by parameter name.
func (s *Store) Parameters() map[string]manifest.ExplainedParameter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]manifest.ExplainedParameter, len(s.parameters))
	for name, p := range s.parameters {
		cp := *p
		cp.Plugins = append([]string(nil), p.Plugins...)
		out[name] = cp
	}
	return out
}

// Plugins returns the most recent metadata reported by each plugin.
func (s *Store) Plugins() map[string]*manifest.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*manifest.Metadata, len(s.plugins))
	for name, meta := range s.plugins {
		out[name] = cloneMetadata(meta)
	}
	return out
}

// mergedParameters flattens inputs and outputs; an output description wins
// over an input of the same name.
func mergedParameters(meta *manifest.Metadata) map[string]manifest.ParameterMetadata {
	out := make(map[string]manifest.ParameterMetadata, len(meta.Inputs)+len(meta.Outputs))
	for name, p := range meta.Inputs {
		out[name] = p
	}
	for name, p := range meta.Outputs {
		out[name] = p
	}
	return out
}

func cloneMetadata(meta *manifest.Metadata) *manifest.Metadata {
	cp := &manifest.Metadata{}
	if meta.Inputs != nil {
		cp.Inputs = make(map[string]manifest.ParameterMetadata, len(meta.Inputs))
		for k, v := range meta.Inputs {
			cp.Inputs[k] = v
		}
	}
	if meta.Outputs != nil {
		cp.Outputs = make(map[string]manifest.ParameterMetadata, len(meta.Outputs))
		for k, v := range meta.Outputs {
			cp.Outputs[k] = v
		}
	}
	return cp
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
