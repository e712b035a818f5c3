package reactor

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestCreateChild(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")

	a, err := rt.CreateChild(root, "a")
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	c, _ := rt.CreateChild(root, "c")

	children, _ := rt.Children(root)
	if !slices.Equal(children, []NodeID{a, c}) {
		t.Errorf("expected children [%s %s], got %v", a, c, children)
	}
	if p, _ := rt.Parent(a); p != root {
		t.Errorf("expected parent %s, got %s", root, p)
	}
}

func TestCreateChildUnderDestroyedOwner(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	rt.Destroy(root)

	if _, err := rt.CreateChild(root, "late"); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
}

func TestDestroyCascades(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	b := rt.Builder(root)
	sub := b.Spawn("sub", nil)

	count := CreateMutable(b, 0)
	inner := CreateMutable(sub, "x")
	runs := 0
	r, _ := sub.CreateEffect(func(cx *Rcx) {
		count.Get(cx)
		inner.Get(cx)
		runs++
	})
	cb := CreateCallback(sub, func(cx *Rcx, n int) {})

	if err := rt.Destroy(sub.Parent()); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if r.Alive() || inner.Alive() || cb.Alive() {
		t.Error("descendants should be gone")
	}
	if _, err := inner.Read(nil); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("cell read: expected ErrStaleHandle, got %v", err)
	}
	if err := inner.Set("y"); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("cell write: expected ErrStaleHandle, got %v", err)
	}
	if err := cb.Run(1); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("callback: expected ErrStaleHandle, got %v", err)
	}
	if _, err := r.Dependencies(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("reaction: expected ErrStaleHandle, got %v", err)
	}
	if _, _, ok := rt.Store().Read(inner.Key()); ok {
		t.Error("cell storage should be reclaimed")
	}

	count.Set(1)
	drain(t, rt)
	if runs != 1 {
		t.Errorf("destroyed reaction re-fired: %d runs", runs)
	}
	if !count.Alive() {
		t.Error("sibling cell should survive")
	}
}

func TestDestroyPendingReaction(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	count := CreateMutable(b, 0)
	sub := b.Spawn("sub", nil)

	runs := 0
	sub.CreateEffect(func(cx *Rcx) { count.Get(cx); runs++ })

	count.Set(1)
	rt.Destroy(sub.Parent())
	report := drain(t, rt)
	if runs != 1 || report.Runs != 0 {
		t.Errorf("destroyed pending reaction ran: runs=%d report=%+v", runs, report)
	}
}

func TestDestroyTwice(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	child, _ := rt.CreateChild(root, "child")

	if err := rt.Destroy(child); err != nil {
		t.Fatalf("first Destroy: %v", err)
	}
	err := rt.Destroy(child)
	var ie *InvariantError
	if !errors.As(err, &ie) || !errors.Is(err, ErrInvariant) {
		t.Errorf("expected InvariantError, got %v", err)
	}
}

func TestDestroyOrder(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	b := rt.Builder(root)

	var order []string
	b.OnCleanup(func() { order = append(order, "root-1") })
	b.OnCleanup(func() { order = append(order, "root-2") })
	b.Spawn("a", nil).OnCleanup(func() { order = append(order, "a") })
	b.Spawn("b", nil).OnCleanup(func() { order = append(order, "b") })

	rt.Destroy(root)

	want := []string{"b", "a", "root-2", "root-1"}
	if !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
	if len(rt.Roots()) != 0 {
		t.Errorf("expected no roots, got %v", rt.Roots())
	}
}

func TestBuilderStickyError(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	b := rt.Builder(root)
	rt.Destroy(root)

	m := CreateMutable(b, 1)
	if !errors.Is(b.Err(), ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", b.Err())
	}
	if m.Alive() {
		t.Error("cell created under destroyed owner should not be alive")
	}
	if sub := b.Spawn("sub", nil); sub.Err() != b.Err() {
		t.Error("spawned builder should share the error")
	}
}

func TestInheritedPayload(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	b.SetPayload("theme:dark")
	leaf := b.Spawn("panel", 42).Spawn("button", nil)

	got, ok := leaf.Inherited(func(p any) bool {
		_, isString := p.(string)
		return isString
	})
	if !ok || got != "theme:dark" {
		t.Errorf("expected theme:dark, got %v %v", got, ok)
	}
	if _, ok := leaf.Inherited(func(p any) bool { return p == "missing" }); ok {
		t.Error("expected no match")
	}
}

func TestCallbackRun(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	total := CreateMutable(b, 0)

	add := CreateCallback(b, func(cx *Rcx, n int) {
		total.Set(total.Get(cx) + n)
	})
	seen := 0
	b.CreateEffect(func(cx *Rcx) { seen = total.Get(cx) })

	if err := add.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	add.Run(4)
	drain(t, rt)
	if seen != 7 {
		t.Errorf("expected 7, got %d", seen)
	}
}

func TestSignalKinds(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	count := CreateMutable(b, 2)

	c := Constant(10)
	s := count.Signal()
	d := Map(s, func(n int) int { return n * 3 })

	var got []int
	r, _ := b.CreateEffect(func(cx *Rcx) {
		got = []int{c.Get(cx), s.Get(cx), d.Get(cx)}
	})
	if !slices.Equal(got, []int{10, 2, 6}) {
		t.Fatalf("expected [10 2 6], got %v", got)
	}
	deps, _ := r.Dependencies()
	if len(deps) != 1 {
		t.Errorf("expected one deduplicated dependency, got %v", deps)
	}

	if err := c.Set(1); !errors.Is(err, ErrNotWritable) {
		t.Errorf("constant: expected ErrNotWritable, got %v", err)
	}
	if err := d.Set(1); !errors.Is(err, ErrNotWritable) {
		t.Errorf("derived: expected ErrNotWritable, got %v", err)
	}
	if err := s.Set(5); err != nil {
		t.Fatalf("cell signal Set: %v", err)
	}
	drain(t, rt)
	if !slices.Equal(got, []int{10, 5, 15}) {
		t.Errorf("expected [10 5 15], got %v", got)
	}
}

func TestDerivedIsNotMemoized(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	count := CreateMutable(b, 1)

	evals := 0
	d := DeriveFrom(count, func(n int) int { evals++; return n + 1 })
	cx := rt.Reader()
	d.Get(cx)
	d.Get(cx)
	if evals != 2 {
		t.Errorf("expected 2 evaluations, got %d", evals)
	}
}

func TestDerivedReadFailure(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	sub := b.Spawn("sub", nil)
	gone := CreateMutable(sub, 1)
	rt.Destroy(sub.Parent())

	d := DeriveFrom(gone, func(n int) int { return n })
	cx := rt.Reader()
	if _, err := d.Read(cx); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if cx.Err() != nil {
		t.Errorf("Read should not fail the caller's context, got %v", cx.Err())
	}
	d.Get(cx)
	if !errors.Is(cx.Err(), ErrStaleHandle) {
		t.Errorf("Get should fail the caller's context, got %v", cx.Err())
	}
}

func TestUpdate(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	count := CreateMutable(b, 1)

	if err := count.Update(func(n int) int { return n + 41 }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v, _ := count.Read(nil); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if got := MapCell(count, nil, func(n int) string { return "n" }); got != "n" {
		t.Errorf("MapCell: got %q", got)
	}
}

func TestStatsAndSnapshot(t *testing.T) {
	rt := New()
	root := rt.CreateRoot("app")
	b := rt.Builder(root)
	count := CreateMutable(b, 3)
	b.CreateEffect(func(cx *Rcx) { count.Get(cx) })
	CreateCallback(b, func(cx *Rcx, _ struct{}) {})

	st := rt.Stats()
	if st.Nodes != 4 || st.Cells != 1 || st.Reactions != 1 || st.Callbacks != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	snap, err := rt.Snapshot(root)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(snap.Children))
	}
	if snap.Children[0].Kind != "mutable" || snap.Children[0].Value != "3" {
		t.Errorf("unexpected cell snapshot %+v", snap.Children[0])
	}
	if snap.Children[1].Runs != 1 || len(snap.Children[1].Deps) != 1 {
		t.Errorf("unexpected reaction snapshot %+v", snap.Children[1])
	}
}

func TestMapValueTracksLikeGet(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	count := CreateMutable(b, 4)

	var got string
	r, _ := b.CreateEffect(func(cx *Rcx) {
		got = MapValue(count.Signal(), cx, func(n int) string { return strings.Repeat("x", n) })
	})
	if got != "xxxx" {
		t.Fatalf("got %q", got)
	}
	deps, _ := r.Dependencies()
	if len(deps) != 1 || deps[0].Key != count.Key() {
		t.Errorf("deps = %v", deps)
	}
	if got := MapValue(Constant(2), nil, func(n int) int { return n + 1 }); got != 3 {
		t.Errorf("constant: got %d", got)
	}
}

func TestDerivedCleanupWithoutContext(t *testing.T) {
	ran := 0
	d := Derived(func(cx *Rcx) int {
		cx.OnCleanup(func() { ran++ })
		return 1
	})
	if got := d.Get(nil); got != 1 {
		t.Fatalf("got %d", got)
	}
	if ran != 1 {
		t.Errorf("cleanup without a runtime should run immediately, ran %d times", ran)
	}
}
