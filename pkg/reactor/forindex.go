package reactor

// indexedList is the state of one indexed list reconciliation.
type indexedList[T any] struct {
	rt     *Runtime
	eq     func(a, b T) bool
	items  func(cx *Rcx) []T
	build  func(b *Builder, item T, index int)
	update func(b *Builder, item T, index int)

	entries []listEntry[T]
}

// ForIndex builds one child per position.
//
// On every run, a position whose item is unchanged keeps its child
// untouched. A changed item is passed to update with a Builder on the
// existing child, so the child keeps its identity; with a nil update the
// child is destroyed and rebuilt in place. Extra items get new children
// appended at the end and missing trailing items have their children
// destroyed. Children never move.
func ForIndex[T comparable](b *Builder, items func(cx *Rcx) []T, build, update func(b *Builder, item T, index int)) (NodeID, error) {
	return ForIndexCmp(b, items, func(x, y T) bool { return x == y }, build, update)
}

// ForIndexCmp is ForIndex with items compared by eq.
func ForIndexCmp[T any](b *Builder, items func(cx *Rcx) []T, eq func(a, b T) bool, build, update func(b *Builder, item T, index int)) (NodeID, error) {
	l := &indexedList[T]{
		rt:     b.rt,
		eq:     eq,
		items:  items,
		build:  build,
		update: update,
	}
	r, err := b.rt.newReaction(b.parent, "for_index", l.run)
	if r.rt == nil {
		b.fail(err)
		return 0, err
	}
	return r.id, err
}

func (l *indexedList[T]) run(cx *Rcx) {
	items := l.items(cx)
	if cx.err != nil {
		return
	}

	var stats ReconcileStats
	rebuilt := false
	shared := min(len(items), len(l.entries))
	for i := 0; i < shared; i++ {
		e := &l.entries[i]
		if l.eq(e.item, items[i]) && l.rt.Alive(e.node) {
			continue
		}
		e.item = items[i]
		if l.update != nil && l.rt.Alive(e.node) {
			b := l.rt.Builder(e.node)
			l.update(b, items[i], i)
			cx.Fail(b.Err())
			stats.Updated++
			continue
		}
		l.rt.destroyOwned(e.node)
		stats.Destroyed++
		e.node = l.buildItem(cx, items[i], i)
		stats.Built++
		rebuilt = true
	}

	for i := shared; i < len(items); i++ {
		l.entries = append(l.entries, listEntry[T]{item: items[i], node: l.buildItem(cx, items[i], i)})
		stats.Built++
	}

	for i := len(l.entries) - 1; i >= len(items); i-- {
		l.rt.destroyOwned(l.entries[i].node)
		stats.Destroyed++
	}
	clear(l.entries[len(items):])
	l.entries = l.entries[:len(items)]

	if rebuilt {
		order := make([]NodeID, len(l.entries))
		for i, e := range l.entries {
			order[i] = e.node
		}
		cx.Fail(l.rt.reorderChildren(cx.owner, order))
	}
	l.rt.emitReconcile(cx.owner, "for_index", stats)
}

func (l *indexedList[T]) buildItem(cx *Rcx, item T, index int) NodeID {
	b := l.rt.mustChild(cx.owner, "item")
	l.build(b, item, index)
	cx.Fail(b.Err())
	return b.parent
}
