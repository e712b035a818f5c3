package reactor

import (
	"slices"
	"time"
)

// reaction is a tracking scope bound to an action. It lives on a node of
// kind kindReaction and is released when that node is destroyed.
type reaction struct {
	scope  *TrackingScope
	action func(*Rcx)

	// cleanups registered through Rcx.OnCleanup during the last run.
	cleanups []func()

	runs int
}

// Reaction is a copyable handle to a reaction node.
type Reaction struct {
	rt *Runtime
	id NodeID
}

// Node returns the reaction's node id.
func (r Reaction) Node() NodeID {
	return r.id
}

// Alive reports whether the reaction's node still exists.
func (r Reaction) Alive() bool {
	_, err := r.get()
	return err == nil
}

// Dependencies returns the dependency records of the last run.
func (r Reaction) Dependencies() ([]DependencyRecord, error) {
	re, err := r.get()
	if err != nil {
		return nil, err
	}
	return re.scope.Records(), nil
}

// Stale reports whether any dependency has changed since the last run.
func (r Reaction) Stale() (bool, error) {
	re, err := r.get()
	if err != nil {
		return false, err
	}
	return re.scope.Stale(r.rt.store), nil
}

// Runs returns how many times the reaction has run.
func (r Reaction) Runs() (int, error) {
	re, err := r.get()
	if err != nil {
		return 0, err
	}
	return re.runs, nil
}

func (r Reaction) get() (*reaction, error) {
	if r.rt == nil {
		return nil, staleHandle("reaction", r.id)
	}
	n, ok := r.rt.nodes[r.id]
	if !ok || n.reaction == nil {
		return nil, staleHandle("reaction", r.id)
	}
	return n.reaction, nil
}

// =============================================================================
// Creation and runs
// =============================================================================

// newReaction creates a reaction node under owner and runs it once.
// The returned handle is valid even when the first run fails.
func (rt *Runtime) newReaction(owner NodeID, label string, action func(*Rcx)) (Reaction, error) {
	n, err := rt.createNode(owner, kindReaction, label)
	if err != nil {
		return Reaction{}, err
	}
	n.reaction = &reaction{
		scope:  NewTrackingScope(),
		action: action,
	}
	return Reaction{rt: rt, id: n.id}, rt.runReaction(n)
}

// runReaction clears the node's scope, then invokes its action with a
// context bound to that scope. When it returns, the scope holds exactly the
// keys read during this run.
func (rt *Runtime) runReaction(n *node) error {
	re := n.reaction

	rt.runReactionCleanups(re)
	for _, key := range re.scope.reset() {
		rt.unsubscribe(key, n.id)
	}

	cx := &Rcx{rt: rt, owner: n.id, scope: re.scope, reaction: re}
	start := time.Now()
	re.action(cx)
	elapsed := time.Since(start)
	re.runs++

	var err error
	if cx.err != nil {
		err = &RunError{Node: n.id, Label: n.label, Err: cx.err}
	}

	if rt.debug.LogReactionRuns {
		rt.logger.Debug("reaction run",
			"node", n.id,
			"label", n.label,
			"deps", re.scope.Len(),
			"duration", elapsed,
			"error", err)
	}
	rt.emitRun(n.id, n.label, elapsed, err)
	return err
}

func (rt *Runtime) runReactionCleanups(re *reaction) {
	cleanups := re.cleanups
	re.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// releaseReaction unschedules and unsubscribes a reaction being destroyed.
func (rt *Runtime) releaseReaction(n *node) {
	re := n.reaction
	delete(rt.pendingSet, n.id)
	for _, key := range re.scope.reset() {
		rt.unsubscribe(key, n.id)
	}
	rt.runReactionCleanups(re)
}

// IsStale reports whether the reaction on node id has a dependency that
// changed since its last run.
func (rt *Runtime) IsStale(id NodeID) (bool, error) {
	return Reaction{rt: rt, id: id}.Stale()
}

// =============================================================================
// Reverse dependency index
// =============================================================================

func (rt *Runtime) subscribe(key Key, id NodeID) {
	if _, ok := rt.nodes[id]; !ok {
		return
	}
	set := rt.subs[key]
	if set == nil {
		set = make(map[NodeID]struct{})
		rt.subs[key] = set
	}
	set[id] = struct{}{}
}

func (rt *Runtime) unsubscribe(key Key, id NodeID) {
	set := rt.subs[key]
	if set == nil {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(rt.subs, key)
	}
}

// subscribers returns the reactions subscribed to key in creation order.
func (rt *Runtime) subscribers(key Key) []NodeID {
	set := rt.subs[key]
	if len(set) == 0 {
		return nil
	}
	ids := make([]NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
