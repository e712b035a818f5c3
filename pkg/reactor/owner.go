package reactor

import (
	"fmt"
	"slices"
)

// nodeKind identifies what a node carries besides its children.
type nodeKind uint8

const (
	kindNode nodeKind = iota
	kindMutable
	kindReaction
	kindCallback
)

// String returns a human-readable name for the node kind.
func (k nodeKind) String() string {
	switch k {
	case kindMutable:
		return "mutable"
	case kindReaction:
		return "reaction"
	case kindCallback:
		return "callback"
	default:
		return "node"
	}
}

// node is one entry of the ownership arena.
//
// Every node has exactly one owner (its parent, or none for roots). When a
// node is destroyed, its children are destroyed first, depth-first, then the
// node's own reaction, storage, callback and cleanups are released.
type node struct {
	id       NodeID
	parent   NodeID
	children []NodeID
	kind     nodeKind
	label    string
	payload  any

	reaction *reaction
	callback any

	// cleanups are run in reverse registration order on destroy.
	cleanups []func()
}

// removeChild removes child from n's ordered children.
func (n *node) removeChild(child NodeID) bool {
	i := slices.Index(n.children, child)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	return true
}

// =============================================================================
// Tree construction
// =============================================================================

// CreateRoot allocates a new root node.
func (rt *Runtime) CreateRoot(label string) NodeID {
	n := rt.allocNode(0, kindNode, label)
	rt.roots = append(rt.roots, n.id)
	return n.id
}

// CreateChild allocates a node owned by owner. It fails with ErrStaleHandle
// if owner is not alive.
func (rt *Runtime) CreateChild(owner NodeID, label string) (NodeID, error) {
	n, err := rt.createNode(owner, kindNode, label)
	if err != nil {
		return 0, err
	}
	return n.id, nil
}

// createNode allocates a node of the given kind under a live owner.
func (rt *Runtime) createNode(owner NodeID, kind nodeKind, label string) (*node, error) {
	if _, ok := rt.nodes[owner]; !ok {
		return nil, staleHandle("owner", owner)
	}
	return rt.allocNode(owner, kind, label), nil
}

func (rt *Runtime) allocNode(parent NodeID, kind nodeKind, label string) *node {
	rt.lastID++
	n := &node{
		id:     rt.lastID,
		parent: parent,
		kind:   kind,
		label:  label,
	}
	rt.nodes[n.id] = n
	if parent != 0 {
		p := rt.nodes[parent]
		p.children = append(p.children, n.id)
	}
	return n
}

// =============================================================================
// Queries
// =============================================================================

// Alive reports whether id names a live node.
func (rt *Runtime) Alive(id NodeID) bool {
	_, ok := rt.nodes[id]
	return ok
}

// Parent returns the owner of id, or zero for a root.
func (rt *Runtime) Parent(id NodeID) (NodeID, error) {
	n, ok := rt.nodes[id]
	if !ok {
		return 0, staleHandle("node", id)
	}
	return n.parent, nil
}

// Children returns a copy of id's ordered children.
func (rt *Runtime) Children(id NodeID) ([]NodeID, error) {
	n, ok := rt.nodes[id]
	if !ok {
		return nil, staleHandle("node", id)
	}
	return slices.Clone(n.children), nil
}

// Label returns the node's label.
func (rt *Runtime) Label(id NodeID) (string, error) {
	n, ok := rt.nodes[id]
	if !ok {
		return "", staleHandle("node", id)
	}
	return n.label, nil
}

// Payload returns the opaque output value attached to a node.
func (rt *Runtime) Payload(id NodeID) (any, error) {
	n, ok := rt.nodes[id]
	if !ok {
		return nil, staleHandle("node", id)
	}
	return n.payload, nil
}

// SetPayload attaches an opaque output value to a node.
func (rt *Runtime) SetPayload(id NodeID, payload any) error {
	n, ok := rt.nodes[id]
	if !ok {
		return staleHandle("node", id)
	}
	n.payload = payload
	return nil
}

// Roots returns the live root nodes in creation order.
func (rt *Runtime) Roots() []NodeID {
	return slices.Clone(rt.roots)
}

// OnCleanup registers fn to run when owner is destroyed. Cleanups run after
// the owner's children have been destroyed, in reverse registration order.
func (rt *Runtime) OnCleanup(owner NodeID, fn func()) error {
	n, ok := rt.nodes[owner]
	if !ok {
		return staleHandle("owner", owner)
	}
	n.cleanups = append(n.cleanups, fn)
	return nil
}

// =============================================================================
// Destruction
// =============================================================================

// Destroy destroys id and its entire subtree, depth-first, before returning.
// Reactions in the subtree stop being scheduled, cell storage is deleted
// from the store, callbacks become uninvokable and cleanups run.
//
// Destroying a node that does not exist (including one that was already
// destroyed) returns an *InvariantError.
func (rt *Runtime) Destroy(id NodeID) error {
	n, ok := rt.nodes[id]
	if !ok {
		return &InvariantError{Op: "destroy", Node: id, Reason: "node does not exist or was already destroyed"}
	}

	if n.parent != 0 {
		p, ok := rt.nodes[n.parent]
		if !ok {
			invariant("destroy", id, "parent %s is gone", n.parent)
		}
		if !p.removeChild(id) {
			invariant("destroy", id, "not listed as a child of %s", n.parent)
		}
	} else if i := slices.Index(rt.roots, id); i >= 0 {
		rt.roots = slices.Delete(rt.roots, i, i+1)
	}

	rt.destroyNode(n)
	return nil
}

// destroyNode releases n after destroying its children in reverse creation
// order. The caller has already detached n from its parent.
func (rt *Runtime) destroyNode(n *node) {
	children := n.children
	n.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		c, ok := rt.nodes[children[i]]
		if !ok {
			invariant("destroy", n.id, "orphaned child %s", children[i])
		}
		rt.destroyNode(c)
	}

	switch n.kind {
	case kindReaction:
		rt.releaseReaction(n)
	case kindMutable:
		rt.store.Delete(cellKey(n.id))
	case kindCallback:
		n.callback = nil
	}

	for i := len(n.cleanups) - 1; i >= 0; i-- {
		n.cleanups[i]()
	}
	n.cleanups = nil

	delete(rt.nodes, n.id)

	if rt.debug.LogDestroy {
		rt.logger.Debug("node destroyed", "node", n.id, "label", n.label, "kind", n.kind.String())
	}
	rt.emitDestroy(n.id, n.label)
}

// reorderChildren puts the children named in order into that order. Only
// the slots those children already hold are permuted; other children of
// parent (added by callers through CreateChild or a Builder) keep their
// positions. Every id in order must be a distinct child of parent.
func (rt *Runtime) reorderChildren(parent NodeID, order []NodeID) error {
	p, ok := rt.nodes[parent]
	if !ok {
		return &InvariantError{Op: "reorder", Node: parent, Reason: "node is gone"}
	}
	managed := make(map[NodeID]bool, len(order))
	for _, id := range order {
		c, ok := rt.nodes[id]
		if !ok || c.parent != parent || managed[id] {
			return &InvariantError{Op: "reorder", Node: parent, Reason: fmt.Sprintf("%s is not a distinct child", id)}
		}
		managed[id] = true
	}

	next := 0
	for i, id := range p.children {
		if managed[id] {
			p.children[i] = order[next]
			next++
		}
	}
	if next != len(order) {
		return &InvariantError{Op: "reorder", Node: parent, Reason: fmt.Sprintf("order names %d children, found %d", len(order), next)}
	}
	return nil
}
