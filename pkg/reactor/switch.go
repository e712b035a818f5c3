package reactor

// Arm is one branch of a Switch.
type Arm[T any] struct {
	match    func(T) bool
	build    func(*Builder)
	fallback bool
}

// Case matches values equal to v.
func Case[T comparable](v T, build func(*Builder)) Arm[T] {
	return Arm[T]{
		match: func(x T) bool { return x == v },
		build: build,
	}
}

// Match matches values accepted by pred.
func Match[T any](pred func(T) bool, build func(*Builder)) Arm[T] {
	return Arm[T]{match: pred, build: build}
}

// Default is used when no other arm matches. Only the first Default arm is
// considered.
func Default[T any](build func(*Builder)) Arm[T] {
	return Arm[T]{build: build, fallback: true}
}

// Switch shows the first arm whose pattern matches value, falling back to the
// Default arm. With no match and no Default, nothing is shown.
// The shown subtree is rebuilt only when a different arm is selected.
func Switch[T any](b *Builder, value func(cx *Rcx) T, arms ...Arm[T]) (NodeID, error) {
	fallback := emptyTag
	for i, a := range arms {
		if a.fallback {
			fallback = i
			break
		}
	}
	id, err := b.rt.newSlot(b.parent, "switch", func(cx *Rcx) (int, func(*Builder)) {
		v := value(cx)
		if cx.err != nil {
			return emptyTag, nil
		}
		for i, a := range arms {
			if !a.fallback && a.match(v) {
				return i, a.build
			}
		}
		if fallback != emptyTag {
			return fallback, arms[fallback].build
		}
		return emptyTag, nil
	})
	if id == 0 {
		b.fail(err)
	}
	return id, err
}
