package compute

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/vk/ifgrid/internal/manifest"
	"github.com/vk/ifgrid/internal/registry"
	"github.com/vk/ifgrid/internal/testutil"
)

var sampleValues = []any{-1, 0, 1, 2, "", "a", "b", true, false, 0.0}

func genValue() gopter.Gen {
	return gen.IntRange(0, len(sampleValues)-1).Map(func(i int) any { return sampleValues[i] })
}

func genRecord() gopter.Gen {
	return gen.MapOf(gen.OneConstOf("cpu", "region", "duration", "vcpus"), genValue()).
		Map(func(m map[string]any) manifest.Record { return manifest.Record(m) })
}

func TestMergeRecord_Law(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("truthy item value wins, otherwise the default", prop.ForAll(
		func(d, r manifest.Record) bool {
			merged := MergeRecord(d, r)
			for k := range d {
				if _, ok := merged[k]; !ok {
					return false
				}
			}
			for k := range r {
				if _, ok := merged[k]; !ok {
					return false
				}
			}
			for k, v := range merged {
				rv, inItem := r[k]
				dv, inDefaults := d[k]
				switch {
				case inItem && manifest.Truthy(rv):
					if v != rv {
						return false
					}
				case inDefaults:
					if v != dv {
						return false
					}
				default:
					if v != rv {
						return false
					}
				}
			}
			return true
		},
		genRecord(), genRecord(),
	))

	properties.Property("merging twice changes nothing", prop.ForAll(
		func(d, r manifest.Record) bool {
			once := MergeRecord(d, r)
			twice := MergeRecord(d, once)
			if len(once) != len(twice) {
				return false
			}
			for k, v := range once {
				if twice[k] != v {
					return false
				}
			}
			return true
		},
		genRecord(), genRecord(),
	))

	properties.TestingRun(t)
}

func TestMergeDefaults(t *testing.T) {
	items := []manifest.Record{{"cpu": 0}, {"cpu": 5}}
	assert.Equal(t, []manifest.Record{{"cpu": 1}, {"cpu": 5}}, MergeDefaults(items, manifest.Record{"cpu": 1}))
	assert.Equal(t, items, MergeDefaults(items, nil))
}

func TestCompute_AppendLaw(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("append concatenates successive runs", prop.ForAll(
		func(durations []int) bool {
			reg := testutil.Registry(map[string]registry.Plugin{"mock": &testutil.MockPlugin{Field: "carbon", Value: 1}})
			inputs := make([]manifest.Record, len(durations))
			for i, d := range durations {
				inputs[i] = manifest.Record{"duration": d}
			}
			leaf := testutil.Leaf(inputs...)
			leaf.Pipeline = &manifest.PhasedPipeline{Compute: []string{"mock"}}

			first, err := Compute(context.Background(), leaf, Options{Registry: reg, Append: true})
			if err != nil {
				return false
			}
			second, err := Compute(context.Background(), first, Options{Registry: reg, Append: true})
			if err != nil {
				return false
			}

			firstOut := first.(*manifest.LeafNode).Outputs
			secondOut := second.(*manifest.LeafNode).Outputs
			want := append(manifest.CloneRecords(firstOut), firstOut...)
			return testutil.TreeDiff(&manifest.LeafNode{Outputs: want}, &manifest.LeafNode{Outputs: secondOut}) == ""
		},
		gen.SliceOf(gen.IntRange(1, 3600)),
	))

	properties.TestingRun(t)
}

func TestParsePhases(t *testing.T) {
	assert.Equal(t, AllPhases, ParsePhases(false, false, false))

	only := ParsePhases(false, true, false)
	assert.True(t, only.Has(PhaseRegroup))
	assert.False(t, only.Has(PhaseObserve))
	assert.False(t, only.Has(PhaseCompute))
	assert.Equal(t, "regroup", only.String())

	var zero PhaseSet
	assert.True(t, zero.Has(PhaseCompute))
	assert.Equal(t, "observe,regroup,compute", AllPhases.String())
}
