package manifest

// PhasedPipeline lists the plugins of each execution phase. A nil list means
// the phase is not declared; an empty, non-nil list means it was declared
// without entries.
type PhasedPipeline struct {
	Observe []string `yaml:"observe,omitempty"`
	Regroup []string `yaml:"regroup,omitempty"`
	Compute []string `yaml:"compute,omitempty"`
}

// Clone returns a deep copy of p. A nil pipeline stays nil.
func (p *PhasedPipeline) Clone() *PhasedPipeline {
	if p == nil {
		return nil
	}
	return &PhasedPipeline{
		Observe: cloneStrings(p.Observe),
		Regroup: cloneStrings(p.Regroup),
		Compute: cloneStrings(p.Compute),
	}
}

// IsEmpty reports whether no phase lists a plugin or a group key.
func (p *PhasedPipeline) IsEmpty() bool {
	return p == nil || (len(p.Observe) == 0 && len(p.Regroup) == 0 && len(p.Compute) == 0)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

// Scope is the inheritable part of every node. A nil field means the node
// inherits the value from its parent.
type Scope struct {
	Pipeline *PhasedPipeline
	Defaults Record
	Config   map[string]any
}

// NodeScope returns the node's own scope.
func (s *Scope) NodeScope() *Scope { return s }

func (s Scope) clone() Scope {
	return Scope{
		Pipeline: s.Pipeline.Clone(),
		Defaults: s.Defaults.Clone(),
		Config:   CloneConfig(s.Config),
	}
}

// Node is either a *GroupNode or a *LeafNode.
type Node interface {
	NodeScope() *Scope
	Aggregated() Record
	SetAggregated(Record)
	Clone() Node
	isNode()
}

// GroupNode holds children and never runs pipeline phases itself.
type GroupNode struct {
	Scope
	Children *Children
	aggregated Record
}

// LeafNode holds observations. Inputs is nil when the manifest has no
// `inputs` key for the node.
type LeafNode struct {
	Scope
	Inputs     []Record
	Outputs    []Record
	aggregated Record
}

func (*GroupNode) isNode() {}
func (*LeafNode) isNode()  {}

func (g *GroupNode) Aggregated() Record     { return g.aggregated }
func (g *GroupNode) SetAggregated(r Record) { g.aggregated = r }
func (l *LeafNode) Aggregated() Record      { return l.aggregated }
func (l *LeafNode) SetAggregated(r Record)  { l.aggregated = r }

// Clone returns a deep copy of the group and its whole subtree.
func (g *GroupNode) Clone() Node {
	return &GroupNode{
		Scope:      g.Scope.clone(),
		Children:   g.Children.Clone(),
		aggregated: g.aggregated.Clone(),
	}
}

// Clone returns a deep copy of the leaf.
func (l *LeafNode) Clone() Node {
	return &LeafNode{
		Scope:      l.Scope.clone(),
		Inputs:     CloneRecords(l.Inputs),
		Outputs:    CloneRecords(l.Outputs),
		aggregated: l.aggregated.Clone(),
	}
}

// Children is an insertion-ordered map of child name to node. Its order is
// the stable iteration order used throughout a run.
type Children struct {
	names []string
	nodes map[string]Node
}

// NewChildren returns an empty child set.
func NewChildren() *Children {
	return &Children{nodes: make(map[string]Node)}
}

// Set stores n under name, appending name to the order if it is new.
func (c *Children) Set(name string, n Node) {
	if _, exists := c.nodes[name]; !exists {
		c.names = append(c.names, name)
	}
	c.nodes[name] = n
}

// Get returns the child stored under name.
func (c *Children) Get(name string) (Node, bool) {
	if c == nil {
		return nil, false
	}
	n, ok := c.nodes[name]
	return n, ok
}

// Names returns the child names in order.
func (c *Children) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Len returns the number of children.
func (c *Children) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Clone deep-copies every child.
func (c *Children) Clone() *Children {
	out := NewChildren()
	if c == nil {
		return out
	}
	for _, name := range c.names {
		out.Set(name, c.nodes[name].Clone())
	}
	return out
}
