package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/registry"
)

// MockPlugin is a configurable plugin for walker tests. It records every
// call and, unless Fn is set, copies its inputs and sets Field to Value on
// each record.
type MockPlugin struct {
	Field string
	Value any
	Meta  *manifest.Metadata
	Fn    func(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error)

	mu      sync.Mutex
	calls   int
	configs []any
}

// Execute implements registry.Plugin.
func (m *MockPlugin) Execute(ctx context.Context, inputs []manifest.Record, config any) ([]manifest.Record, error) {
	m.mu.Lock()
	m.calls++
	m.configs = append(m.configs, config)
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, inputs, config)
	}
	out := make([]manifest.Record, len(inputs))
	for i, in := range inputs {
		r := in.Clone()
		if m.Field != "" {
			r[m.Field] = m.Value
		}
		out[i] = r
	}
	return out, nil
}

// Metadata implements registry.MetadataProvider.
func (m *MockPlugin) Metadata() *manifest.Metadata { return m.Meta }

// Calls returns how many times Execute ran.
func (m *MockPlugin) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Configs returns the config values passed to Execute, in call order.
func (m *MockPlugin) Configs() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.configs...)
}

// Emit returns a plugin that ignores its inputs and returns records.
func Emit(records ...manifest.Record) registry.Plugin {
	return registry.Func(func(context.Context, []manifest.Record, any) ([]manifest.Record, error) {
		return manifest.CloneRecords(records), nil
	})
}

// ErrPluginFailed is returned by Fail.
var ErrPluginFailed = errors.New("plugin failed")

// Fail returns a plugin that always fails with ErrPluginFailed.
func Fail() registry.Plugin {
	return registry.Func(func(context.Context, []manifest.Record, any) ([]manifest.Record, error) {
		return nil, ErrPluginFailed
	})
}

// Registry builds a static registry from name/plugin pairs.
func Registry(plugins map[string]registry.Plugin) *registry.Static {
	r := registry.New()
	for name, p := range plugins {
		r.Register(name, p)
	}
	return r
}

// SimpleModule registers a single factory; it implements registry.Module.
type SimpleModule struct {
	Method  string
	Factory registry.Factory
}

// Register implements registry.Module.
func (m *SimpleModule) Register(f registry.Factories) {
	if m.Method != "" && m.Factory != nil {
		f.Add(m.Method, m.Factory)
	}
}
