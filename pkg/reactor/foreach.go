package reactor

// keyIndex finds, for each new item, the old entry with the same key.
type keyIndex[T any] interface {
	// duplicate reports the first two items sharing a key.
	duplicate(items []T) (key any, first, second int, ok bool)

	// reset indexes the items of the previous run.
	reset(old []T)

	// take returns the position of the unconsumed old item with the same
	// key as item and marks it consumed, or -1.
	take(item T) int
}

// hashIndex keys items by a comparable key.
type hashIndex[T any, K comparable] struct {
	key func(T) K
	old map[K]int
}

func (x *hashIndex[T, K]) duplicate(items []T) (any, int, int, bool) {
	seen := make(map[K]int, len(items))
	for i, item := range items {
		k := x.key(item)
		if j, ok := seen[k]; ok {
			return k, j, i, true
		}
		seen[k] = i
	}
	return nil, 0, 0, false
}

func (x *hashIndex[T, K]) reset(old []T) {
	x.old = make(map[K]int, len(old))
	for i, item := range old {
		x.old[x.key(item)] = i
	}
}

func (x *hashIndex[T, K]) take(item T) int {
	k := x.key(item)
	i, ok := x.old[k]
	if !ok {
		return -1
	}
	delete(x.old, k)
	return i
}

// cmpIndex keys items by a caller-supplied equivalence. Lookups are linear.
type cmpIndex[T any] struct {
	eq   func(a, b T) bool
	old  []T
	used []bool
}

func (x *cmpIndex[T]) duplicate(items []T) (any, int, int, bool) {
	for i := 1; i < len(items); i++ {
		for j := 0; j < i; j++ {
			if x.eq(items[j], items[i]) {
				return items[i], j, i, true
			}
		}
	}
	return nil, 0, 0, false
}

func (x *cmpIndex[T]) reset(old []T) {
	x.old = old
	x.used = make([]bool, len(old))
}

func (x *cmpIndex[T]) take(item T) int {
	for i, o := range x.old {
		if !x.used[i] && x.eq(o, item) {
			x.used[i] = true
			return i
		}
	}
	return -1
}

// listEntry is one built item of a keyed list.
type listEntry[T any] struct {
	item T
	node NodeID
}

// keyedList is the state of one keyed list reconciliation.
type keyedList[T any] struct {
	rt       *Runtime
	index    keyIndex[T]
	items    func(cx *Rcx) []T
	build    func(b *Builder, item T)
	fallback func(b *Builder)

	entries     []listEntry[T]
	placeholder NodeID
}

// ForEach builds one child per item, keyed by the item itself.
// See ForEachKey for the reconciliation rules.
//
// Items are used as map keys, so an interface T holding a dynamic value
// that is not comparable (a slice, map or func) panics. Use ForEachKey with
// a comparable key, or ForEachCmp, for such items.
func ForEach[T comparable](b *Builder, items func(cx *Rcx) []T, build func(b *Builder, item T), fallback func(b *Builder)) (NodeID, error) {
	return ForEachKey(b, items, func(item T) T { return item }, build, fallback)
}

// ForEachKey builds one child per item, keyed by key(item).
//
// On every run the items are matched against the previous run by key. A
// child whose key is still present is reused without rebuilding, a new key
// gets a fresh child from build, and children whose key disappeared are
// destroyed. Children are then reordered to follow the items; other children
// added to the list node by the caller keep their positions. While the list
// is empty, fallback (if non-nil) is built once as a placeholder and is
// destroyed when items reappear.
//
// Two items with the same key fail the run with a *DuplicateKeyError and
// leave the children unchanged.
func ForEachKey[T any, K comparable](b *Builder, items func(cx *Rcx) []T, key func(T) K, build func(b *Builder, item T), fallback func(b *Builder)) (NodeID, error) {
	return newKeyedList(b, &hashIndex[T, K]{key: key}, items, build, fallback)
}

// ForEachCmp is ForEach with keys compared by eq, which must be an
// equivalence relation. Matching is quadratic in the list length.
func ForEachCmp[T any](b *Builder, items func(cx *Rcx) []T, eq func(a, b T) bool, build func(b *Builder, item T), fallback func(b *Builder)) (NodeID, error) {
	return newKeyedList(b, &cmpIndex[T]{eq: eq}, items, build, fallback)
}

func newKeyedList[T any](b *Builder, index keyIndex[T], items func(cx *Rcx) []T, build func(b *Builder, item T), fallback func(b *Builder)) (NodeID, error) {
	l := &keyedList[T]{
		rt:       b.rt,
		index:    index,
		items:    items,
		build:    build,
		fallback: fallback,
	}
	r, err := b.rt.newReaction(b.parent, "for_each", l.run)
	if r.rt == nil {
		b.fail(err)
		return 0, err
	}
	return r.id, err
}

func (l *keyedList[T]) run(cx *Rcx) {
	items := l.items(cx)
	if cx.err != nil {
		return
	}
	if key, first, second, dup := l.index.duplicate(items); dup {
		cx.Fail(&DuplicateKeyError{List: cx.owner, Key: key, First: first, Second: second})
		return
	}

	var stats ReconcileStats
	if len(items) == 0 {
		for _, e := range l.entries {
			l.rt.destroyOwned(e.node)
			stats.Destroyed++
		}
		l.entries = nil
		if l.placeholder == 0 && l.fallback != nil {
			b := l.rt.mustChild(cx.owner, "fallback")
			l.placeholder = b.parent
			l.fallback(b)
			stats.Built++
			cx.Fail(b.Err())
		}
		l.rt.emitReconcile(cx.owner, "for_each", stats)
		return
	}

	if l.placeholder != 0 {
		l.rt.destroyOwned(l.placeholder)
		l.placeholder = 0
		stats.Destroyed++
	}

	old := make([]T, len(l.entries))
	for i, e := range l.entries {
		old[i] = e.item
	}
	l.index.reset(old)

	consumed := make([]bool, len(l.entries))
	next := make([]listEntry[T], 0, len(items))
	for _, item := range items {
		if i := l.index.take(item); i >= 0 {
			consumed[i] = true
			if node := l.entries[i].node; l.rt.Alive(node) {
				next = append(next, listEntry[T]{item: item, node: node})
				stats.Reused++
				continue
			}
		}
		b := l.rt.mustChild(cx.owner, "item")
		l.build(b, item)
		cx.Fail(b.Err())
		next = append(next, listEntry[T]{item: item, node: b.parent})
		stats.Built++
	}

	for i, e := range l.entries {
		if !consumed[i] {
			l.rt.destroyOwned(e.node)
			stats.Destroyed++
		}
	}
	l.entries = next

	order := make([]NodeID, len(next))
	for i, e := range next {
		order[i] = e.node
	}
	cx.Fail(l.rt.reorderChildren(cx.owner, order))
	l.rt.emitReconcile(cx.owner, "for_each", stats)
}
