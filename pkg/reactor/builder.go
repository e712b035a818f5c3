package reactor

// Builder creates nodes, cells, reactions and callbacks owned by a parent
// node. Builder functions passed to Cond, Switch, ForEach and ForIndex
// receive a Builder whose parent is the fresh subtree root.
//
// A Builder carries a sticky error shared by every Builder spawned from it:
// creating anything under a destroyed parent records ErrStaleHandle, and
// the reconciliation that invoked the builder function reports it as the
// run's failure.
type Builder struct {
	rt     *Runtime
	parent NodeID
	err    *error
}

// Builder returns a Builder that attaches everything it creates to parent.
func (rt *Runtime) Builder(parent NodeID) *Builder {
	return &Builder{rt: rt, parent: parent, err: new(error)}
}

// Runtime returns the runtime.
func (b *Builder) Runtime() *Runtime {
	return b.rt
}

// Parent returns the node everything created by b is attached to.
func (b *Builder) Parent() NodeID {
	return b.parent
}

// Err returns the first failure recorded while building.
func (b *Builder) Err() error {
	return *b.err
}

func (b *Builder) fail(err error) {
	if err != nil && *b.err == nil {
		*b.err = err
	}
}

// Reader returns a non-tracking context owned by the builder's parent.
func (b *Builder) Reader() *Rcx {
	return &Rcx{rt: b.rt, owner: b.parent}
}

// Spawn creates a child node carrying payload and returns a Builder for it.
func (b *Builder) Spawn(label string, payload any) *Builder {
	n, err := b.rt.createNode(b.parent, kindNode, label)
	if err != nil {
		b.fail(err)
		return &Builder{rt: b.rt, parent: 0, err: b.err}
	}
	n.payload = payload
	return &Builder{rt: b.rt, parent: n.id, err: b.err}
}

// Payload returns the payload of the builder's parent node.
func (b *Builder) Payload() any {
	p, _ := b.rt.Payload(b.parent)
	return p
}

// SetPayload sets the payload of the builder's parent node.
func (b *Builder) SetPayload(payload any) {
	b.fail(b.rt.SetPayload(b.parent, payload))
}

// OnCleanup registers fn to run when the builder's parent is destroyed.
func (b *Builder) OnCleanup(fn func()) {
	b.fail(b.rt.OnCleanup(b.parent, fn))
}

// Inherited walks from the builder's parent towards the root and returns
// the first payload accepted by match.
func (b *Builder) Inherited(match func(payload any) bool) (any, bool) {
	id := b.parent
	for id != 0 {
		n, ok := b.rt.nodes[id]
		if !ok {
			return nil, false
		}
		if n.payload != nil && match(n.payload) {
			return n.payload, true
		}
		id = n.parent
	}
	return nil, false
}

// CreateEffect creates a reaction owned by the builder's parent and runs it
// immediately. The action re-runs on the drain pass after any key it read
// is written.
//
// The returned error is the first run's failure; the handle is valid even
// then, and the reaction re-runs normally when its dependencies change.
func (b *Builder) CreateEffect(action func(cx *Rcx)) (Reaction, error) {
	return b.rt.newReaction(b.parent, "effect", action)
}

// newChild creates a plain child node for a reconciliation subtree and
// returns a Builder with its own error.
func (rt *Runtime) newChild(owner NodeID, label string) (*Builder, error) {
	n, err := rt.createNode(owner, kindNode, label)
	if err != nil {
		return nil, err
	}
	return rt.Builder(n.id), nil
}
