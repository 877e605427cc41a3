package plugincfg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

type sampleConfig struct {
	InputParameters []string          `cty:"input-parameters" validate:"required,min=1"`
	OutputParameter string            `cty:"output-parameter" validate:"required"`
	Coefficient     float64           `cty:"coefficient"`
	Keep            bool              `cty:"keep"`
	Labels          map[string]string `cty:"labels"`
	Extra           any               `cty:"extra"`
	ignored         string
}

func TestDecode_PopulatesTaggedFields(t *testing.T) {
	raw := map[string]any{
		"input-parameters": []any{"cpu/energy", "network/energy"},
		"output-parameter": "energy",
		"coefficient":      "3",
		"keep":             true,
		"labels":           map[string]any{"team": "infra", "tier": 1},
		"extra":            map[string]any{"a": []any{1, "b"}},
		"unknown":          42,
	}

	var cfg sampleConfig
	require.NoError(t, Decode(context.Background(), raw, &cfg))

	assert.Equal(t, []string{"cpu/energy", "network/energy"}, cfg.InputParameters)
	assert.Equal(t, "energy", cfg.OutputParameter)
	assert.Equal(t, 3.0, cfg.Coefficient)
	assert.True(t, cfg.Keep)
	assert.Equal(t, map[string]string{"team": "infra", "tier": "1"}, cfg.Labels)
	assert.Equal(t, map[string]any{"a": []any{1.0, "b"}}, cfg.Extra)
	assert.Empty(t, cfg.ignored)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing required", map[string]any{"input-parameters": []any{"a"}}},
		{"empty list", map[string]any{"input-parameters": []any{}, "output-parameter": "x"}},
		{"nil config", nil},
		{"wrong type", map[string]any{"input-parameters": "a", "output-parameter": "x"}},
		{"non numeric coefficient", map[string]any{"input-parameters": []any{"a"}, "output-parameter": "x", "coefficient": "lots"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg sampleConfig
			err := Decode(context.Background(), tc.raw, &cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrGlobalConfig), "got %v", err)
		})
	}
}

func TestDecode_RejectsNonPointer(t *testing.T) {
	err := Decode(context.Background(), map[string]any{}, sampleConfig{})
	assert.True(t, errors.Is(err, errs.ErrGlobalConfig))
}

func TestMerge(t *testing.T) {
	global := map[string]any{"coefficient": 2, "output-parameter": "carbon"}
	node := map[string]any{"coefficient": 5}

	got := Merge(global, node)

	assert.Equal(t, map[string]any{"coefficient": 5, "output-parameter": "carbon"}, got)
	assert.Equal(t, 2, global["coefficient"])
	assert.Equal(t, global, Merge(global, nil))
	assert.Equal(t, global, Merge(global, "not a map"))
}

func TestToValueAndBack(t *testing.T) {
	v, err := ToValue(map[string]any{
		"n":    1,
		"f":    1.5,
		"s":    "x",
		"b":    false,
		"l":    []string{"a"},
		"none": nil,
	})
	require.NoError(t, err)
	assert.True(t, v.Type().IsObjectType())
	assert.Equal(t, cty.String, v.GetAttr("s").Type())

	native, err := ToNative(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    1.0,
		"f":    1.5,
		"s":    "x",
		"b":    false,
		"l":    []any{"a"},
		"none": nil,
	}, native)
}
