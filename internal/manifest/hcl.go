package manifest

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// DecodeHCL parses an HCL manifest. Top-level attributes map to the YAML
// manifest keys, for example:
//
//	name = "demo"
//	tree = {
//	  pipeline = { compute = ["sum"] }
//	  children = {
//	    child-1 = { inputs = [{ timestamp = "2023-07-06T00:00", duration = 3600 }] }
//	  }
//	}
//
// Object constructors are walked in source order so children keep the order
// they were written in.
func DecodeHCL(src []byte, filename string) (*Manifest, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %s", errs.ErrManifestParse, filename, diags.Error())
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL file %s: %s", errs.ErrManifestParse, filename, diags.Error())
	}

	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, attr := range ordered {
		value, err := exprToYAML(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: attribute %q: %v", errs.ErrManifestParse, filename, attr.Name, err)
		}
		root.Content = append(root.Content, scalarKey(attr.Name), value)
	}

	var m Manifest
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrManifestParse, filename, err)
	}
	return &m, nil
}

func exprToYAML(expr hcl.Expression) (*yaml.Node, error) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, item := range e.Items {
			key, diags := item.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			if key.IsNull() || !key.Type().Equals(cty.String) {
				return nil, fmt.Errorf("object key at %s must be a string", item.KeyExpr.Range())
			}
			value, err := exprToYAML(item.ValueExpr)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, scalarKey(key.AsString()), value)
		}
		return m, nil
	case *hclsyntax.TupleConsExpr:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, inner := range e.Exprs {
			value, err := exprToYAML(inner)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, value)
		}
		return seq, nil
	}

	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToYAML(value)
}

// ctyToYAML converts an evaluated cty value. Object and map attributes come
// out in lexical order.
func ctyToYAML(v cty.Value) (*yaml.Node, error) {
	if v.IsNull() {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value of type %s is not known", v.Type().FriendlyName())
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.AsString()}, nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(new(big.Int))
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: i.String()}, nil
		}
		f, _ := bf.Float64()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: fmt.Sprint(f)}, nil
	case ty == cty.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v.True())}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			node, err := ctyToYAML(elem)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			node, err := ctyToYAML(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			m.Content = append(m.Content, scalarKey(key.AsString()), node)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
	}
}
