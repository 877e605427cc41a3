// Package regroup reshapes a flat list of records into a nested tree keyed by
// the values of one or more grouping fields.
package regroup

import (
	"fmt"

	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// Regroup partitions inputs, and then outputs, into nested children: the
// first key selects the top-level child, the second a child inside it, and
// so on. Records land on the innermost leaf in their original order. Child
// order follows first appearance.
func Regroup(inputs, outputs []manifest.Record, groupKeys []string) (*manifest.Children, error) {
	if err := ValidateKeys(groupKeys); err != nil {
		return nil, err
	}

	root := manifest.NewChildren()
	if err := place(root, inputs, groupKeys, "inputs"); err != nil {
		return nil, err
	}
	if err := place(root, outputs, groupKeys, "outputs"); err != nil {
		return nil, err
	}
	return root, nil
}

// ValidateKeys rejects an empty key list or an empty key name.
func ValidateKeys(groupKeys []string) error {
	if len(groupKeys) == 0 {
		return errs.New(errs.ErrInputValidation, "regroup: must be an array with at least one element")
	}
	for i, key := range groupKeys {
		if key == "" {
			return errs.New(errs.ErrInputValidation, "regroup: group key at position %d is empty", i)
		}
	}
	return nil
}

func place(root *manifest.Children, items []manifest.Record, groupKeys []string, target string) error {
	for i, item := range items {
		values, err := groupValues(item, groupKeys, target, i)
		if err != nil {
			return err
		}

		level := root
		for depth, value := range values {
			if depth == len(values)-1 {
				leaf := leafAt(level, value)
				if target == "inputs" {
					leaf.Inputs = append(leaf.Inputs, item.Clone())
				} else {
					leaf.Outputs = append(leaf.Outputs, item.Clone())
				}
				break
			}
			level = groupAt(level, value).Children
		}
	}
	return nil
}

func groupValues(item manifest.Record, groupKeys []string, target string, index int) ([]string, error) {
	values := make([]string, len(groupKeys))
	for k, key := range groupKeys {
		v, ok := item[key]
		if !ok || !manifest.Truthy(v) {
			return nil, errs.New(errs.ErrInvalidGrouping, "Invalid group %s in %s[%d].", key, target, index)
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func groupAt(level *manifest.Children, name string) *manifest.GroupNode {
	if n, ok := level.Get(name); ok {
		if g, ok := n.(*manifest.GroupNode); ok {
			return g
		}
	}
	g := &manifest.GroupNode{Children: manifest.NewChildren()}
	level.Set(name, g)
	return g
}

func leafAt(level *manifest.Children, name string) *manifest.LeafNode {
	if n, ok := level.Get(name); ok {
		if l, ok := n.(*manifest.LeafNode); ok {
			return l
		}
	}
	l := &manifest.LeafNode{}
	level.Set(name, l)
	return l
}

// IsRegrouped reports whether items already sit at the position groupKeys
// would put them: path must end with one segment per key and every item's
// key values must equal those segments in order. It has no side effects.
func IsRegrouped(groupKeys []string, items []manifest.Record, path []string) bool {
	if len(groupKeys) == 0 || len(path) < len(groupKeys) {
		return false
	}
	tail := path[len(path)-len(groupKeys):]

	for _, item := range items {
		for k, key := range groupKeys {
			v, ok := item[key]
			if !ok || fmt.Sprint(v) != tail[k] {
				return false
			}
		}
	}
	return true
}
