package reactor

// Rcx is the reactive context handed to reaction actions, derived signal
// functions and callbacks.
//
// A tracking Rcx is bound to the TrackingScope of the running reaction:
// every store read made through it records a dependency. A non-tracking Rcx
// (from Runtime.Reader, Rcx.Untracked, or a callback) reads without
// recording. A nil *Rcx is a valid non-tracking context.
//
// Rcx carries a sticky error. Operations that cannot return an error
// themselves (Mutable.Get, Signal.Get) report failures through Fail; the
// first failure wins and is surfaced as the run's error.
type Rcx struct {
	rt       *Runtime
	owner    NodeID
	scope    *TrackingScope
	reaction *reaction

	// parent receives failures reported on an Untracked view.
	parent *Rcx

	err error
}

// Runtime returns the runtime this context belongs to.
func (cx *Rcx) Runtime() *Runtime {
	if cx == nil {
		return nil
	}
	return cx.rt
}

// Owner returns the node that owns the running computation: the reaction's
// node, the callback's node, or zero for a bare reader.
func (cx *Rcx) Owner() NodeID {
	if cx == nil {
		return 0
	}
	return cx.owner
}

// Tracking reports whether reads through this context record dependencies.
func (cx *Rcx) Tracking() bool {
	return cx != nil && cx.scope != nil
}

// Err returns the first failure reported on this context.
func (cx *Rcx) Err() error {
	if cx == nil {
		return nil
	}
	return cx.err
}

// Fail records err as this context's failure. Only the first failure is
// kept. A nil err is ignored.
func (cx *Rcx) Fail(err error) {
	if cx == nil || err == nil {
		return
	}
	if cx.parent != nil {
		cx.parent.Fail(err)
	}
	if cx.err == nil {
		cx.err = err
	}
}

// Untracked returns a view of this context that reads without recording
// dependencies. Failures reported on the view propagate to cx.
func (cx *Rcx) Untracked() *Rcx {
	if cx == nil {
		return nil
	}
	return &Rcx{rt: cx.rt, owner: cx.owner, reaction: cx.reaction, parent: cx}
}

// OnCleanup registers fn to run before the next run of the current reaction
// and when the reaction is destroyed. Outside a reaction, fn is attached to
// the context's owner node and runs when that node is destroyed; with no
// live owner (or no runtime) it runs immediately.
func (cx *Rcx) OnCleanup(fn func()) {
	if cx == nil || cx.rt == nil {
		fn()
		return
	}
	if cx.reaction != nil {
		cx.reaction.cleanups = append(cx.reaction.cleanups, fn)
		return
	}
	if err := cx.rt.OnCleanup(cx.owner, fn); err != nil {
		fn()
	}
}

// track records a read of key at version in the bound scope and subscribes
// the reaction to future writes of key.
func (cx *Rcx) track(key Key, version Version) {
	if cx == nil || cx.scope == nil {
		return
	}
	if cx.scope.Track(key, version) {
		cx.rt.subscribe(key, cx.owner)
	}
}

// detached returns a context sharing the scope but not the error, so a
// caller can observe a nested computation's failure without failing cx.
func (cx *Rcx) detached() *Rcx {
	if cx == nil {
		return &Rcx{}
	}
	return &Rcx{rt: cx.rt, owner: cx.owner, scope: cx.scope, reaction: cx.reaction}
}
