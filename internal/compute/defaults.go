package compute

import "github.com/vk/ifgrid/internal/manifest"

// MergeRecord layers defaults under item: for every key of either record the
// item's value wins when it is truthy, otherwise the default's value is used.
// A falsy item value with no default key is kept as is.
func MergeRecord(defaults, item manifest.Record) manifest.Record {
	out := make(manifest.Record, len(defaults)+len(item))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range item {
		if manifest.Truthy(v) {
			out[k] = v
			continue
		}
		if _, ok := defaults[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// MergeDefaults applies MergeRecord to every item. With no defaults the items
// are returned unchanged.
func MergeDefaults(items []manifest.Record, defaults manifest.Record) []manifest.Record {
	if len(defaults) == 0 {
		return items
	}
	out := make([]manifest.Record, len(items))
	for i, item := range items {
		out[i] = MergeRecord(defaults, item)
	}
	return out
}
