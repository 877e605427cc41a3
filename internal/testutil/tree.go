package testutil

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/vk/ifgrid/internal/manifest"
)

// TreeOptions compares manifest trees structurally, including child order
// and aggregated values. Nil and empty records compare equal.
var TreeOptions = cmp.Options{
	cmp.AllowUnexported(manifest.GroupNode{}, manifest.LeafNode{}, manifest.Children{}),
	cmpopts.EquateEmpty(),
}

// TreeDiff returns a human-readable diff between two trees, or "" when they
// are equal.
func TreeDiff(want, got manifest.Node) string {
	return cmp.Diff(want, got, TreeOptions)
}

// Leaf builds a leaf node with the given inputs.
func Leaf(inputs ...manifest.Record) *manifest.LeafNode {
	if inputs == nil {
		inputs = []manifest.Record{}
	}
	return &manifest.LeafNode{Inputs: inputs}
}

// Group builds a group node from alternating name, node pairs.
func Group(pairs ...any) *manifest.GroupNode {
	children := manifest.NewChildren()
	for i := 0; i+1 < len(pairs); i += 2 {
		children.Set(pairs[i].(string), pairs[i+1].(manifest.Node))
	}
	return &manifest.GroupNode{Children: children}
}

// Child walks names down from n and returns the node found there, or nil.
func Child(n manifest.Node, names ...string) manifest.Node {
	for _, name := range names {
		g, ok := n.(*manifest.GroupNode)
		if !ok {
			return nil
		}
		n, ok = g.Children.Get(name)
		if !ok {
			return nil
		}
	}
	return n
}
