package copyparam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name   string
		global map[string]any
		want   manifest.Record
	}{
		{
			name:   "move",
			global: map[string]any{"from": "original", "to": "copy"},
			want:   manifest.Record{"timestamp": "t0", "copy": "hello"},
		},
		{
			name:   "keep existing",
			global: map[string]any{"from": "original", "to": "copy", "keep-existing": true},
			want:   manifest.Record{"timestamp": "t0", "original": "hello", "copy": "hello"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.global)
			require.NoError(t, err)
			in := []manifest.Record{{"timestamp": "t0", "original": "hello"}}

			out, err := p.Execute(context.Background(), in, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out[0])
			assert.Equal(t, "hello", in[0]["original"])
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), []manifest.Record{{"a": 1}}, nil)
	require.ErrorIs(t, err, errs.ErrGlobalConfig)
	assert.Contains(t, err.Error(), "Config is not provided.")

	p, err = New(map[string]any{"from": "a", "to": "b"})
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), []manifest.Record{{"c": 1}}, nil)
	require.ErrorIs(t, err, errs.ErrInputValidation)

	_, err = p.Execute(context.Background(), []manifest.Record{{"a": 1}}, map[string]any{"to": ""})
	assert.ErrorIs(t, err, errs.ErrGlobalConfig)
}
