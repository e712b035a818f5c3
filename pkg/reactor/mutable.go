package reactor

const cellName = "mutable"

// cellKey is the store key holding the value of the cell on node id.
func cellKey(id NodeID) Key {
	return Key{Node: id, Name: cellName}
}

// Mutable is a store-backed read/write cell owned by a node.
//
// The handle is a (runtime, node) pair: copying it is cheap and it carries
// no lifetime of its own. The value lives in the store under Key(); it is
// deleted when the cell's owner is destroyed, after which every operation
// on the handle fails with ErrStaleHandle.
type Mutable[T any] struct {
	rt *Runtime
	id NodeID
}

// CreateMutable creates a cell owned by the builder's parent and writes its
// initial value.
//
// Example:
//
//	count := reactor.CreateMutable(b, 0)
//	b.CreateEffect(func(cx *reactor.Rcx) {
//	    fmt.Println("count:", count.Get(cx))
//	})
func CreateMutable[T any](b *Builder, initial T) Mutable[T] {
	n, err := b.rt.createNode(b.parent, kindMutable, cellName)
	if err != nil {
		b.fail(err)
		return Mutable[T]{rt: b.rt}
	}
	b.rt.store.Write(cellKey(n.id), initial)
	return Mutable[T]{rt: b.rt, id: n.id}
}

// Node returns the cell's node id.
func (m Mutable[T]) Node() NodeID {
	return m.id
}

// Key returns the store key holding the cell's value.
func (m Mutable[T]) Key() Key {
	return cellKey(m.id)
}

// Alive reports whether the cell's storage still exists.
func (m Mutable[T]) Alive() bool {
	return m.check() == nil
}

func (m Mutable[T]) check() error {
	if m.rt == nil {
		return staleHandle("mutable", m.id)
	}
	if n, ok := m.rt.nodes[m.id]; !ok || n.kind != kindMutable {
		return staleHandle("mutable", m.id)
	}
	return nil
}

// Read returns the cell's value. If cx is tracking, a dependency on the
// cell's key is recorded at its current version.
func (m Mutable[T]) Read(cx *Rcx) (T, error) {
	var zero T
	if err := m.check(); err != nil {
		return zero, err
	}
	key := cellKey(m.id)
	v, version, ok := m.rt.store.Read(key)
	if !ok {
		return zero, &InvariantError{Op: "read", Node: m.id, Reason: "cell storage missing"}
	}
	cx.track(key, version)
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, typeMismatch(key, zero, v)
	}
	return t, nil
}

// Get is Read with failures reported on cx. It returns the zero value on
// failure. With a nil cx, failures are dropped; use Read when the error
// matters.
func (m Mutable[T]) Get(cx *Rcx) T {
	v, err := m.Read(cx)
	cx.Fail(err)
	return v
}

// Set writes value, bumps the key's version and marks dependent reactions
// pending.
func (m Mutable[T]) Set(value T) error {
	if err := m.check(); err != nil {
		return err
	}
	m.rt.store.Write(cellKey(m.id), value)
	return nil
}

// Update replaces the value with fn applied to the current value. The read
// is not tracked.
func (m Mutable[T]) Update(fn func(T) T) error {
	v, err := m.Read(nil)
	if err != nil {
		return err
	}
	return m.Set(fn(v))
}

// Signal wraps the cell as a Signal.
func (m Mutable[T]) Signal() Signal[T] {
	return Signal[T]{kind: signalCell, cell: m}
}

// MapCell applies fn to the cell's current value. If cx is tracking, the
// dependency is recorded exactly as in Get.
func MapCell[T, U any](m Mutable[T], cx *Rcx, fn func(T) U) U {
	return fn(m.Get(cx))
}

// ReadKey performs a tracked read of host-owned state stored under key.
// ok is false when the key has no value or holds a value of another type;
// a type mismatch is also reported on cx.
func ReadKey[T any](cx *Rcx, key Key) (T, bool) {
	var zero T
	if cx == nil || cx.rt == nil {
		return zero, false
	}
	v, version, ok := cx.rt.store.Read(key)
	cx.track(key, version)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		cx.Fail(typeMismatch(key, zero, v))
		return zero, false
	}
	return t, true
}
