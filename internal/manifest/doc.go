// Package manifest is the data model of the impact tree and its codecs.
//
// A tree is made of two node shapes. A GroupNode owns ordered children and
// never carries observations; a LeafNode carries inputs, outputs and the
// aggregated record. Regrouping a leaf replaces it with a GroupNode, so a node
// holding both children and inputs cannot be represented.
//
// Manifests are read from YAML (gopkg.in/yaml.v3) or HCL (hashicorp/hcl/v2).
// Both formats are lowered to a *yaml.Node document and decoded by the same
// code path, so child order is preserved either way.
package manifest
