package manifest

import (
	"fmt"

	"github.com/vk/ifgrid/internal/errs"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a manifest. The tree is kept as a raw
// node because its variant shape and child order need custom handling.
type document struct {
	Name        string                        `yaml:"name"`
	Description string                        `yaml:"description,omitempty"`
	Tags        map[string]string             `yaml:"tags,omitempty"`
	Aggregation *Aggregation                  `yaml:"aggregation,omitempty"`
	Explainer   bool                          `yaml:"explainer,omitempty"`
	Explain     map[string]ExplainedParameter `yaml:"explain,omitempty"`
	Initialize  Initialize                    `yaml:"initialize"`
	Execution   *Execution                    `yaml:"execution,omitempty"`
	Tree        *yaml.Node                    `yaml:"tree"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Manifest) UnmarshalYAML(value *yaml.Node) error {
	var doc document
	if err := value.Decode(&doc); err != nil {
		return err
	}
	*m = Manifest{
		Name:        doc.Name,
		Description: doc.Description,
		Tags:        doc.Tags,
		Aggregation: doc.Aggregation,
		Explainer:   doc.Explainer,
		Explain:     doc.Explain,
		Initialize:  doc.Initialize,
		Execution:   doc.Execution,
	}
	if doc.Tree == nil || doc.Tree.Kind == 0 {
		return nil
	}
	tree, err := decodeNode(doc.Tree, "tree")
	if err != nil {
		return err
	}
	m.Tree = tree
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m *Manifest) MarshalYAML() (any, error) {
	doc := document{
		Name:        m.Name,
		Description: m.Description,
		Tags:        m.Tags,
		Aggregation: m.Aggregation,
		Explainer:   m.Explainer,
		Explain:     m.Explain,
		Initialize:  m.Initialize,
		Execution:   m.Execution,
	}
	if m.Tree != nil {
		tree, err := encodeNode(m.Tree)
		if err != nil {
			return nil, err
		}
		doc.Tree = tree
	}
	return doc, nil
}

func decodeNode(n *yaml.Node, path string) (Node, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode {
		return nil, errs.New(errs.ErrManifestParse, "%s (line %d): node must be a mapping", path, n.Line)
	}

	var (
		scope           Scope
		children        *Children
		inputs, outputs []Record
		aggregated      Record
		hasChildren     bool
		hasInputs       bool
		hasOutputs      bool
	)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i].Value, n.Content[i+1]
		var err error
		switch key {
		case "pipeline":
			scope.Pipeline, err = decodePipeline(value, path)
		case "defaults":
			err = value.Decode(&scope.Defaults)
		case "config":
			err = value.Decode(&scope.Config)
		case "children":
			hasChildren = true
			children, err = decodeChildren(value, path)
		case "inputs":
			hasInputs = true
			inputs, err = decodeRecords(value)
		case "outputs":
			hasOutputs = true
			outputs, err = decodeRecords(value)
		case "aggregated", "aggregated-outputs":
			err = value.Decode(&aggregated)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, key, err)
		}
	}

	if hasChildren {
		if hasInputs || hasOutputs {
			return nil, errs.New(errs.ErrStructureMalformed, "%s (line %d): node has both children and inputs/outputs", path, n.Line)
		}
		return &GroupNode{Scope: scope, Children: children, aggregated: aggregated}, nil
	}
	return &LeafNode{Scope: scope, Inputs: inputs, Outputs: outputs, aggregated: aggregated}, nil
}

func decodePipeline(n *yaml.Node, path string) (*PhasedPipeline, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
	case yaml.MappingNode:
		var p PhasedPipeline
		if err := n.Decode(&p); err != nil {
			return nil, err
		}
		return &p, nil
	}
	return nil, errs.New(errs.ErrManifestParse, "%s (line %d): pipeline must map phases (observe, regroup, compute) to plugin lists", path, n.Line)
}

func decodeChildren(n *yaml.Node, path string) (*Children, error) {
	children := NewChildren()
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return children, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errs.New(errs.ErrManifestParse, "%s (line %d): children must be a mapping", path, n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		child, err := decodeNode(n.Content[i+1], path+".children."+name)
		if err != nil {
			return nil, err
		}
		children.Set(name, child)
	}
	return children, nil
}

func decodeRecords(n *yaml.Node) ([]Record, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return []Record{}, nil
	}
	records := []Record{}
	if err := n.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func encodeNode(node Node) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	scope := node.NodeScope()

	if scope.Pipeline != nil {
		m.Content = append(m.Content, scalarKey("pipeline"), encodePipeline(scope.Pipeline))
	}
	if err := appendValue(m, "defaults", scope.Defaults, scope.Defaults != nil); err != nil {
		return nil, err
	}
	if err := appendValue(m, "config", scope.Config, scope.Config != nil); err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *GroupNode:
		children := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, name := range n.Children.Names() {
			child, _ := n.Children.Get(name)
			encoded, err := encodeNode(child)
			if err != nil {
				return nil, err
			}
			children.Content = append(children.Content, scalarKey(name), encoded)
		}
		m.Content = append(m.Content, scalarKey("children"), children)
	case *LeafNode:
		if err := appendValue(m, "inputs", n.Inputs, n.Inputs != nil); err != nil {
			return nil, err
		}
		if err := appendValue(m, "outputs", n.Outputs, n.Outputs != nil); err != nil {
			return nil, err
		}
	}

	aggregated := node.Aggregated()
	if err := appendValue(m, "aggregated", aggregated, aggregated != nil); err != nil {
		return nil, err
	}
	return m, nil
}

// encodePipeline writes every declared phase, including declared-but-empty
// ones, so a round trip keeps nil and empty lists apart.
func encodePipeline(p *PhasedPipeline) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, phase := range []struct {
		name  string
		items []string
	}{
		{"observe", p.Observe},
		{"regroup", p.Regroup},
		{"compute", p.Compute},
	} {
		if phase.items == nil {
			continue
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(phase.items) == 0 {
			seq.Style = yaml.FlowStyle
		}
		for _, item := range phase.items {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		m.Content = append(m.Content, scalarKey(phase.name), seq)
	}
	return m
}

func appendValue(m *yaml.Node, key string, value any, present bool) error {
	if !present {
		return nil
	}
	encoded := &yaml.Node{}
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	m.Content = append(m.Content, scalarKey(key), encoded)
	return nil
}

func scalarKey(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}
