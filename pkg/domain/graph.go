package domain

// NodeSpec declares a single step of a graph.
type NodeSpec struct {
	Name    string         `json:"name" yaml:"name"`
	Handler string         `json:"handler" yaml:"handler"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// GraphSpec is a declarative workflow graph.
//
// Edges maps a node name to its default successor. StartNode and edge
// targets are not required to reference declared nodes; unknown names are
// detected when a run reaches them.
type GraphSpec struct {
	Nodes     []NodeSpec        `json:"nodes" yaml:"nodes"`
	Edges     map[string]string `json:"edges" yaml:"edges"`
	StartNode string            `json:"start_node" yaml:"start_node"`
}

// Node returns the first node declared under name.
func (g *GraphSpec) Node(name string) (*NodeSpec, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Next returns the default successor of name from the edge map.
func (g *GraphSpec) Next(name string) (string, bool) {
	next, ok := g.Edges[name]
	if !ok || next == "" {
		return "", false
	}
	return next, true
}

// Clone returns a copy that shares no slices or maps with g. Param values are shared.
func (g *GraphSpec) Clone() *GraphSpec {
	out := &GraphSpec{
		Nodes:     make([]NodeSpec, len(g.Nodes)),
		Edges:     make(map[string]string, len(g.Edges)),
		StartNode: g.StartNode,
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = NodeSpec{Name: n.Name, Handler: n.Handler}
		if n.Params != nil {
			out.Nodes[i].Params = make(map[string]any, len(n.Params))
			for k, v := range n.Params {
				out.Nodes[i].Params[k] = v
			}
		}
	}
	for k, v := range g.Edges {
		out.Edges[k] = v
	}
	return out
}
