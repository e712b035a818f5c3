package reactor

import "fmt"

// NodeSnapshot is a point-in-time copy of a node and its subtree.
type NodeSnapshot struct {
	ID       NodeID             `json:"id"`
	Label    string             `json:"label"`
	Kind     string             `json:"kind"`
	Payload  string             `json:"payload,omitempty"`
	Value    string             `json:"value,omitempty"`
	Deps     []DependencyRecord `json:"deps,omitempty"`
	Runs     int                `json:"runs,omitempty"`
	Pending  bool               `json:"pending,omitempty"`
	Children []NodeSnapshot     `json:"children,omitempty"`
}

// Stats counts the live nodes of a runtime by kind.
type Stats struct {
	Nodes     int    `json:"nodes"`
	Roots     int    `json:"roots"`
	Reactions int    `json:"reactions"`
	Cells     int    `json:"cells"`
	Callbacks int    `json:"callbacks"`
	Pending   int    `json:"pending"`
	Passes    uint64 `json:"passes"`
}

// Snapshot copies the subtree rooted at id.
func (rt *Runtime) Snapshot(id NodeID) (NodeSnapshot, error) {
	n, ok := rt.nodes[id]
	if !ok {
		return NodeSnapshot{}, staleHandle("node", id)
	}
	return rt.snapshot(n), nil
}

// SnapshotRoots copies every root subtree in creation order.
func (rt *Runtime) SnapshotRoots() []NodeSnapshot {
	out := make([]NodeSnapshot, 0, len(rt.roots))
	for _, id := range rt.roots {
		out = append(out, rt.snapshot(rt.nodes[id]))
	}
	return out
}

func (rt *Runtime) snapshot(n *node) NodeSnapshot {
	s := NodeSnapshot{
		ID:    n.id,
		Label: n.label,
		Kind:  n.kind.String(),
	}
	if n.payload != nil {
		s.Payload = fmt.Sprint(n.payload)
	}
	switch n.kind {
	case kindReaction:
		s.Deps = n.reaction.scope.Records()
		s.Runs = n.reaction.runs
		_, s.Pending = rt.pendingSet[n.id]
	case kindMutable:
		if v, _, ok := rt.store.Read(cellKey(n.id)); ok {
			s.Value = fmt.Sprint(v)
		}
	}
	if len(n.children) > 0 {
		s.Children = make([]NodeSnapshot, 0, len(n.children))
		for _, c := range n.children {
			s.Children = append(s.Children, rt.snapshot(rt.nodes[c]))
		}
	}
	return s
}

// Stats returns counts of live nodes by kind.
func (rt *Runtime) Stats() Stats {
	st := Stats{
		Nodes:   len(rt.nodes),
		Roots:   len(rt.roots),
		Pending: len(rt.pendingSet),
		Passes:  rt.passes,
	}
	for _, n := range rt.nodes {
		switch n.kind {
		case kindReaction:
			st.Reactions++
		case kindMutable:
			st.Cells++
		case kindCallback:
			st.Callbacks++
		}
	}
	return st
}
