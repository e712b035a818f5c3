package reactor

type signalKind uint8

const (
	signalConstant signalKind = iota
	signalCell
	signalDerived
)

// Signal is a readable value: a constant, a cell, or a function of other
// signals. Reading a signal through a tracking Rcx records the keys its
// value depends on in the caller's scope.
//
// Derived signals are not memoized: every read re-evaluates the function,
// and the reads it makes are recorded in the caller's scope directly.
// The zero Signal is a constant holding T's zero value.
type Signal[T any] struct {
	kind   signalKind
	value  T
	cell   Mutable[T]
	derive func(cx *Rcx) T
}

// Constant returns a signal that always yields v and records no
// dependencies.
func Constant[T any](v T) Signal[T] {
	return Signal[T]{kind: signalConstant, value: v}
}

// Derived returns a signal computed by fn on every read. Report failures
// from fn with cx.Fail.
func Derived[T any](fn func(cx *Rcx) T) Signal[T] {
	return Signal[T]{kind: signalDerived, derive: fn}
}

// DeriveFrom returns a signal computed from a cell's value.
func DeriveFrom[T, U any](m Mutable[T], fn func(T) U) Signal[U] {
	return Derived(func(cx *Rcx) U {
		return fn(m.Get(cx))
	})
}

// Map returns a signal that applies fn to s's value.
func Map[T, U any](s Signal[T], fn func(T) U) Signal[U] {
	if s.kind == signalConstant {
		return Constant(fn(s.value))
	}
	return Derived(func(cx *Rcx) U {
		return fn(s.Get(cx))
	})
}

// MapValue applies fn to s's current value. Dependencies are recorded in cx
// exactly as Get records them.
func MapValue[T, U any](s Signal[T], cx *Rcx, fn func(T) U) U {
	return fn(s.Get(cx))
}

// Read evaluates the signal. A derived signal's failure is returned rather
// than reported on cx.
func (s Signal[T]) Read(cx *Rcx) (T, error) {
	switch s.kind {
	case signalCell:
		return s.cell.Read(cx)
	case signalDerived:
		inner := cx.detached()
		v := s.derive(inner)
		if inner.err != nil {
			var zero T
			return zero, inner.err
		}
		return v, nil
	default:
		return s.value, nil
	}
}

// Get evaluates the signal and reports any failure on cx.
func (s Signal[T]) Get(cx *Rcx) T {
	v, err := s.Read(cx)
	cx.Fail(err)
	return v
}

// Set writes a cell signal. Constant and derived signals return
// ErrNotWritable.
func (s Signal[T]) Set(v T) error {
	if s.kind != signalCell {
		return ErrNotWritable
	}
	return s.cell.Set(v)
}

// Writable reports whether Set can succeed.
func (s Signal[T]) Writable() bool {
	return s.kind == signalCell
}

// Cell returns the underlying cell of a cell signal.
func (s Signal[T]) Cell() (Mutable[T], bool) {
	return s.cell, s.kind == signalCell
}
