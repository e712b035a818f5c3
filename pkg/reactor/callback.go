package reactor

// Callback is a handle to an invocable function owned by a node. Once the
// node is destroyed, Run fails with ErrStaleHandle.
type Callback[P any] struct {
	rt *Runtime
	id NodeID
}

type callbackFunc[P any] func(cx *Rcx, props P)

// CreateCallback registers fn under the builder's parent. fn receives a
// non-tracking context owned by the callback's node; cells it writes mark
// their dependents pending as usual.
func CreateCallback[P any](b *Builder, fn func(cx *Rcx, props P)) Callback[P] {
	n, err := b.rt.createNode(b.parent, kindCallback, "callback")
	if err != nil {
		b.fail(err)
		return Callback[P]{rt: b.rt}
	}
	n.callback = callbackFunc[P](fn)
	return Callback[P]{rt: b.rt, id: n.id}
}

// Node returns the callback's node id.
func (c Callback[P]) Node() NodeID {
	return c.id
}

// Alive reports whether the callback can still be invoked.
func (c Callback[P]) Alive() bool {
	if c.rt == nil {
		return false
	}
	n, ok := c.rt.nodes[c.id]
	return ok && n.callback != nil
}

// Run invokes the callback with props. It returns the first failure the
// callback reported on its context.
func (c Callback[P]) Run(props P) error {
	if !c.Alive() {
		return staleHandle("callback", c.id)
	}
	n := c.rt.nodes[c.id]
	fn, ok := n.callback.(callbackFunc[P])
	if !ok {
		var zero P
		return typeMismatch(Key{Node: c.id, Name: "callback"}, zero, props)
	}
	cx := &Rcx{rt: c.rt, owner: c.id}
	fn(cx, props)
	return cx.err
}
