package coefficient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

func TestExecute(t *testing.T) {
	p, err := New(map[string]any{
		"coefficient":      3,
		"input-parameter":  "carbon",
		"output-parameter": "carbon-product",
	})
	require.NoError(t, err)

	out, err := p.Execute(context.Background(), []manifest.Record{
		{"duration": 3600, "carbon": 3},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, manifest.Record{"duration": 3600, "carbon": 3, "carbon-product": 9.0}, out[0])
}

func TestExecute_ZeroCoefficient(t *testing.T) {
	p, err := New(map[string]any{"coefficient": 0, "input-parameter": "a", "output-parameter": "b"})
	require.NoError(t, err)

	out, err := p.Execute(context.Background(), []manifest.Record{{"a": 5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[0]["b"])
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		global  map[string]any
		node    any
		inputs  []manifest.Record
		wantErr error
		wantMsg string
	}{
		{
			name:    "no config",
			inputs:  []manifest.Record{{"a": 1}},
			wantErr: errs.ErrGlobalConfig,
			wantMsg: "Config is not provided.",
		},
		{
			name:    "no coefficient",
			global:  map[string]any{"input-parameter": "a", "output-parameter": "b"},
			inputs:  []manifest.Record{{"a": 1}},
			wantErr: errs.ErrGlobalConfig,
			wantMsg: "coefficient",
		},
		{
			name:    "coefficient not numeric",
			global:  map[string]any{"coefficient": "x", "input-parameter": "a", "output-parameter": "b"},
			inputs:  []manifest.Record{{"a": 1}},
			wantErr: errs.ErrGlobalConfig,
		},
		{
			name:    "input missing",
			global:  map[string]any{"coefficient": 2, "input-parameter": "a", "output-parameter": "b"},
			inputs:  []manifest.Record{{"c": 1}},
			wantErr: errs.ErrInputValidation,
			wantMsg: "a is missing",
		},
		{
			name:    "node config completes global",
			global:  map[string]any{"input-parameter": "a", "output-parameter": "b"},
			node:    map[string]any{"coefficient": 2},
			inputs:  []manifest.Record{{"c": 1}},
			wantErr: errs.ErrInputValidation,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.global)
			require.NoError(t, err)
			_, err = p.Execute(context.Background(), tc.inputs, tc.node)
			require.ErrorIs(t, err, tc.wantErr)
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}
