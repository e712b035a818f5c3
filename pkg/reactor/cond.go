package reactor

// emptyTag marks a slot with no built branch.
const emptyTag = -1

// slot is the state of one conditional reconciliation: the tag of the
// branch currently built and the root of its subtree.
type slot struct {
	tag    int
	branch NodeID
}

// newSlot creates a reaction node under owner that keeps at most one branch
// subtree built. eval returns the tag of the branch to show and its builder;
// a nil builder with emptyTag means nothing is shown.
//
// When eval reports a failure on cx, the current branch is kept as is.
func (rt *Runtime) newSlot(owner NodeID, label string, eval func(cx *Rcx) (int, func(*Builder))) (NodeID, error) {
	s := &slot{tag: emptyTag}
	r, err := rt.newReaction(owner, label, func(cx *Rcx) {
		tag, build := eval(cx)
		if cx.err != nil {
			return
		}
		var stats ReconcileStats
		if tag != s.tag {
			if s.branch != 0 {
				rt.destroyOwned(s.branch)
				s.branch = 0
				stats.Destroyed++
			}
			s.tag = tag
			if build != nil {
				b := rt.mustChild(cx.owner, "branch")
				s.branch = b.parent
				build(b)
				stats.Built++
				cx.Fail(b.Err())
			}
		}
		rt.emitReconcile(cx.owner, label, stats)
	})
	if r.rt == nil {
		return 0, err
	}
	return r.id, err
}

// Cond shows pos while test reports true and neg otherwise. Either builder
// may be nil. The branch is rebuilt only when the result of test flips.
//
// Example:
//
//	b.Cond(func(cx *reactor.Rcx) bool { return visible.Get(cx) },
//	    func(b *reactor.Builder) { b.Spawn("panel", nil) },
//	    nil)
func (b *Builder) Cond(test func(cx *Rcx) bool, pos, neg func(*Builder)) (NodeID, error) {
	id, err := b.rt.newSlot(b.parent, "cond", func(cx *Rcx) (int, func(*Builder)) {
		if test(cx) {
			return 1, pos
		}
		return 0, neg
	})
	if id == 0 {
		b.fail(err)
	}
	return id, err
}

// destroyOwned destroys a node owned by a reconciliation. A node destroyed
// from outside in the meantime is ignored.
func (rt *Runtime) destroyOwned(id NodeID) {
	if !rt.Alive(id) {
		return
	}
	if err := rt.Destroy(id); err != nil {
		invariant("reconcile", id, "%v", err)
	}
}

// mustChild creates a subtree root under the running reconciliation's node,
// which is alive for the duration of its run.
func (rt *Runtime) mustChild(owner NodeID, label string) *Builder {
	b, err := rt.newChild(owner, label)
	if err != nil {
		invariant("reconcile", owner, "running reconciliation has no node: %v", err)
	}
	return b
}
