package reactor

import (
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// statsRecorder collects reconcile events.
type statsRecorder struct {
	NopObserver
	events []ReconcileStats
}

func (s *statsRecorder) OnReconcile(_ NodeID, _ string, stats ReconcileStats) {
	s.events = append(s.events, stats)
}

func (s *statsRecorder) last() ReconcileStats {
	if len(s.events) == 0 {
		return ReconcileStats{}
	}
	return s.events[len(s.events)-1]
}

func labels(t *testing.T, rt *Runtime, id NodeID) []string {
	t.Helper()
	children, err := rt.Children(id)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	out := make([]string, len(children))
	for i, c := range children {
		p, _ := rt.Payload(c)
		out[i], _ = p.(string)
	}
	return out
}

func TestCondBuildsOncePerFlip(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	flag := CreateMutable(b, true)

	builds := map[string]int{}
	destroyed := map[string]int{}
	branch := func(name string) func(*Builder) {
		return func(b *Builder) {
			builds[name]++
			b.SetPayload(name)
			b.OnCleanup(func() { destroyed[name]++ })
		}
	}

	slot, err := b.Cond(func(cx *Rcx) bool { return flag.Get(cx) }, branch("yes"), branch("no"))
	if err != nil {
		t.Fatalf("Cond: %v", err)
	}

	flag.Set(false)
	drain(t, rt)
	flag.Set(false)
	drain(t, rt)

	if builds["yes"] != 1 || builds["no"] != 1 {
		t.Errorf("expected one build per branch, got %v", builds)
	}
	if destroyed["yes"] != 1 || destroyed["no"] != 0 {
		t.Errorf("expected only the true branch destroyed, got %v", destroyed)
	}
	if got := labels(t, rt, slot); !slices.Equal(got, []string{"no"}) {
		t.Errorf("expected [no], got %v", got)
	}
}

func TestCondKeepsBranchInternals(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	flag := CreateMutable(b, true)
	count := CreateMutable(b, 0)

	inner := 0
	builds := 0
	b.Cond(func(cx *Rcx) bool { return flag.Get(cx) },
		func(b *Builder) {
			builds++
			b.CreateEffect(func(cx *Rcx) { inner = count.Get(cx) })
		}, nil)

	count.Set(9)
	drain(t, rt)
	if inner != 9 || builds != 1 {
		t.Errorf("expected inner reaction to update without rebuild, inner=%d builds=%d", inner, builds)
	}

	flag.Set(false)
	drain(t, rt)
	count.Set(10)
	drain(t, rt)
	if inner != 9 {
		t.Errorf("reaction of destroyed branch re-fired: %d", inner)
	}
}

func TestSwitchFirstMatchWins(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	mode := CreateMutable(b, "edit")

	show := func(name string) func(*Builder) {
		return func(b *Builder) { b.SetPayload(name) }
	}
	slot, err := Switch(b, func(cx *Rcx) string { return mode.Get(cx) },
		Match(func(s string) bool { return strings.HasPrefix(s, "ed") }, show("prefix")),
		Case("edit", show("exact")),
		Default[string](show("other")),
	)
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := labels(t, rt, slot); !slices.Equal(got, []string{"prefix"}) {
		t.Errorf("expected [prefix], got %v", got)
	}

	mode.Set("view")
	drain(t, rt)
	if got := labels(t, rt, slot); !slices.Equal(got, []string{"other"}) {
		t.Errorf("expected [other], got %v", got)
	}
}

func TestSwitchWithoutDefault(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	n := CreateMutable(b, 1)

	slot, _ := Switch(b, func(cx *Rcx) int { return n.Get(cx) },
		Case(1, func(b *Builder) { b.SetPayload("one") }),
	)
	n.Set(2)
	drain(t, rt)
	if children, _ := rt.Children(slot); len(children) != 0 {
		t.Errorf("expected empty slot, got %v", children)
	}
	n.Set(1)
	drain(t, rt)
	if got := labels(t, rt, slot); !slices.Equal(got, []string{"one"}) {
		t.Errorf("expected [one], got %v", got)
	}
}

func TestForEachIdempotent(t *testing.T) {
	rec := &statsRecorder{}
	rt := New(WithObserver(rec))
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{"A", "B", "C"})

	list, err := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) { b.SetPayload(item) }, nil)
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	before, _ := rt.Children(list)

	items.Set([]string{"A", "B", "C"})
	drain(t, rt)

	after, _ := rt.Children(list)
	if !slices.Equal(before, after) {
		t.Errorf("expected same children, got %v then %v", before, after)
	}
	if got := rec.last(); got.Built != 0 || got.Destroyed != 0 || got.Reused != 3 {
		t.Errorf("expected pure reuse, got %+v", got)
	}
}

func TestForEachMinimalDiff(t *testing.T) {
	rec := &statsRecorder{}
	rt := New(WithObserver(rec))
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{"A", "B", "C"})

	var built []string
	list, _ := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) {
			built = append(built, item)
			b.SetPayload(item)
		}, nil)
	old, _ := rt.Children(list)

	built = nil
	items.Set([]string{"A", "C", "D"})
	drain(t, rt)

	if !slices.Equal(built, []string{"D"}) {
		t.Errorf("expected only D built, got %v", built)
	}
	if got := rec.last(); got.Built != 1 || got.Destroyed != 1 || got.Reused != 2 {
		t.Errorf("unexpected stats %+v", got)
	}
	children, _ := rt.Children(list)
	if children[0] != old[0] || children[1] != old[2] {
		t.Errorf("A and C should be reused, got %v from %v", children, old)
	}
	if rt.Alive(old[1]) {
		t.Error("B should be destroyed")
	}
	if got := labels(t, rt, list); !slices.Equal(got, []string{"A", "C", "D"}) {
		t.Errorf("expected [A C D], got %v", got)
	}
}

func TestForEachReorders(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{"A", "B", "C"})

	builds := 0
	list, _ := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) { builds++; b.SetPayload(item) }, nil)

	items.Set([]string{"C", "A", "B"})
	drain(t, rt)
	if builds != 3 {
		t.Errorf("reorder should not rebuild, got %d builds", builds)
	}
	if got := labels(t, rt, list); !slices.Equal(got, []string{"C", "A", "B"}) {
		t.Errorf("expected [C A B], got %v", got)
	}
}

func TestForEachDuplicateKey(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{"A", "B"})

	list, _ := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) { b.SetPayload(item) }, nil)
	before, _ := rt.Children(list)

	items.Set([]string{"A", "B", "A"})
	report := drain(t, rt)
	if len(report.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failures))
	}
	var dk *DuplicateKeyError
	if !errors.As(report.Failures[0], &dk) {
		t.Fatalf("expected DuplicateKeyError, got %v", report.Failures[0])
	}
	if dk.Key != "A" || dk.First != 0 || dk.Second != 2 {
		t.Errorf("unexpected duplicate %+v", dk)
	}
	after, _ := rt.Children(list)
	if !slices.Equal(before, after) {
		t.Errorf("children should be untouched, got %v from %v", after, before)
	}
}

func TestForEachFallback(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{})

	fallbacks := 0
	list, _ := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) { b.SetPayload(item) },
		func(b *Builder) { fallbacks++; b.SetPayload("empty") })

	if got := labels(t, rt, list); !slices.Equal(got, []string{"empty"}) {
		t.Fatalf("expected placeholder, got %v", got)
	}

	items.Set(nil)
	drain(t, rt)
	if fallbacks != 1 {
		t.Errorf("placeholder should be built once, got %d", fallbacks)
	}

	items.Set([]string{"A"})
	drain(t, rt)
	if got := labels(t, rt, list); !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected [A], got %v", got)
	}

	items.Set(nil)
	drain(t, rt)
	if fallbacks != 2 {
		t.Errorf("placeholder should be rebuilt after items emptied, got %d", fallbacks)
	}
}

type todo struct {
	ID    int
	Title string
}

func TestForEachCmpReusesByComparator(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []todo{{1, "a"}, {2, "b"}})

	builds := 0
	list, _ := ForEachCmp(b, func(cx *Rcx) []todo { return items.Get(cx) },
		func(x, y todo) bool { return x.ID == y.ID },
		func(b *Builder, item todo) { builds++ }, nil)

	items.Set([]todo{{2, "b2"}, {1, "a2"}})
	drain(t, rt)
	if builds != 2 {
		t.Errorf("expected no rebuilds, got %d builds", builds)
	}

	items.Set([]todo{{1, "x"}, {1, "y"}})
	report := drain(t, rt)
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0], ErrDuplicateKey) {
		t.Errorf("expected duplicate key failure, got %v", report.Failures)
	}
	if children, _ := rt.Children(list); len(children) != 2 {
		t.Errorf("expected 2 children, got %d", len(children))
	}
}

func TestForEachKey(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []todo{{1, "a"}, {2, "b"}, {3, "c"}})

	list, _ := ForEachKey(b, func(cx *Rcx) []todo { return items.Get(cx) },
		func(t todo) int { return t.ID },
		func(b *Builder, item todo) { b.SetPayload(item.Title) }, nil)
	old, _ := rt.Children(list)

	items.Set([]todo{{3, "c"}, {1, "a"}})
	drain(t, rt)
	children, _ := rt.Children(list)
	if !slices.Equal(children, []NodeID{old[2], old[0]}) {
		t.Errorf("expected [%s %s], got %v", old[2], old[0], children)
	}
}

func TestForIndexUpdatesInPlace(t *testing.T) {
	rec := &statsRecorder{}
	rt := New(WithObserver(rec))
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []int{1, 2, 3})

	builds, updates := 0, 0
	list, err := ForIndex(b, func(cx *Rcx) []int { return items.Get(cx) },
		func(b *Builder, item, i int) {
			builds++
			b.SetPayload(item)
		},
		func(b *Builder, item, i int) {
			updates++
			b.SetPayload(item)
		})
	if err != nil {
		t.Fatalf("ForIndex: %v", err)
	}
	old, _ := rt.Children(list)

	items.Set([]int{1, 5, 3})
	drain(t, rt)

	children, _ := rt.Children(list)
	if !slices.Equal(children, old) {
		t.Errorf("expected the same children, got %v from %v", children, old)
	}
	if builds != 3 || updates != 1 {
		t.Errorf("expected 3 builds and 1 update, got %d and %d", builds, updates)
	}
	if p, _ := rt.Payload(children[1]); p != 5 {
		t.Errorf("expected child 1 updated to 5, got %v", p)
	}
	if got := rec.last(); got.Updated != 1 || got.Built != 0 || got.Destroyed != 0 {
		t.Errorf("unexpected stats %+v", got)
	}
}

func TestForIndexGrowAndShrink(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []int{1, 2})

	list, _ := ForIndex(b, func(cx *Rcx) []int { return items.Get(cx) },
		func(b *Builder, item, i int) { b.SetPayload(item) }, nil)
	old, _ := rt.Children(list)

	items.Set([]int{1, 2, 3, 4})
	drain(t, rt)
	grown, _ := rt.Children(list)
	if len(grown) != 4 || grown[0] != old[0] || grown[1] != old[1] {
		t.Fatalf("expected two appended children, got %v from %v", grown, old)
	}

	items.Set([]int{1})
	drain(t, rt)
	shrunk, _ := rt.Children(list)
	if !slices.Equal(shrunk, []NodeID{old[0]}) {
		t.Errorf("expected [%s], got %v", old[0], shrunk)
	}
	for _, id := range grown[1:] {
		if rt.Alive(id) {
			t.Errorf("trailing child %s should be destroyed", id)
		}
	}
}

func TestForIndexRebuildWithoutUpdate(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []int{1, 2, 3})

	list, _ := ForIndex(b, func(cx *Rcx) []int { return items.Get(cx) },
		func(b *Builder, item, i int) { b.SetPayload(item) }, nil)
	old, _ := rt.Children(list)

	items.Set([]int{1, 7, 3})
	drain(t, rt)
	children, _ := rt.Children(list)
	if children[0] != old[0] || children[2] != old[2] || children[1] == old[1] {
		t.Errorf("expected only index 1 rebuilt, got %v from %v", children, old)
	}
	if p, _ := rt.Payload(children[1]); p != 7 {
		t.Errorf("expected 7 at index 1, got %v", p)
	}
}

func TestForEachKeepsForeignChildren(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []string{"a", "b"})

	list, _ := ForEach(b, func(cx *Rcx) []string { return items.Get(cx) },
		func(b *Builder, item string) { b.SetPayload(item) }, nil)

	if _, err := rt.Builder(list).CreateEffect(func(cx *Rcx) {}); err != nil {
		t.Fatalf("CreateEffect: %v", err)
	}
	extra, err := rt.CreateChild(list, "extra")
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	rt.SetPayload(extra, "extra")

	items.Set([]string{"b", "a"})
	if report := drain(t, rt); len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
	if got := labels(t, rt, list); !slices.Equal(got, []string{"b", "a", "", "extra"}) {
		t.Errorf("expected [b a  extra], got %q", got)
	}

	items.Set([]string{"c", "a"})
	drain(t, rt)
	if got := labels(t, rt, list); !slices.Equal(got, []string{"c", "", "extra", "a"}) {
		t.Errorf("expected list items in their own slots, got %q", got)
	}
	if !rt.Alive(extra) {
		t.Error("foreign child should survive reconciliation")
	}
}

func TestForIndexKeepsForeignChildren(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []int{1, 2})

	list, _ := ForIndex(b, func(cx *Rcx) []int { return items.Get(cx) },
		func(b *Builder, item, i int) { b.SetPayload(strconv.Itoa(item)) },
		func(b *Builder, item, i int) { b.SetPayload(strconv.Itoa(item)) })
	extra, _ := rt.CreateChild(list, "extra")
	rt.SetPayload(extra, "extra")

	items.Set([]int{3, 2})
	if report := drain(t, rt); len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
	if got := labels(t, rt, list); !slices.Equal(got, []string{"3", "2", "extra"}) {
		t.Errorf("expected [3 2 extra], got %q", got)
	}

	items.Set([]int{3, 2, 5})
	drain(t, rt)
	if got := labels(t, rt, list); !slices.Equal(got, []string{"3", "2", "extra", "5"}) {
		t.Errorf("expected [3 2 extra 5], got %q", got)
	}
}

func TestReorderRejectsNonChild(t *testing.T) {
	rt := New()
	a := rt.CreateRoot("a")
	other := rt.CreateRoot("other")
	child, _ := rt.CreateChild(other, "child")

	err := rt.reorderChildren(a, []NodeID{child})
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestForEachKeyNonComparableItems(t *testing.T) {
	rt := New()
	b := rt.Builder(rt.CreateRoot("app"))
	items := CreateMutable(b, []any{[]int{1}, map[string]int{"b": 2}})

	key := func(item any) string {
		switch v := item.(type) {
		case []int:
			return "s" + strconv.Itoa(v[0])
		case map[string]int:
			return "m" + strconv.Itoa(v["b"])
		}
		return ""
	}
	list, err := ForEachKey(b, func(cx *Rcx) []any { return items.Get(cx) }, key,
		func(b *Builder, item any) { b.SetPayload(key(item)) }, nil)
	if err != nil {
		t.Fatalf("ForEachKey: %v", err)
	}

	items.Set([]any{map[string]int{"b": 2}, []int{1}})
	if report := drain(t, rt); len(report.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
	if got := labels(t, rt, list); !slices.Equal(got, []string{"m2", "s1"}) {
		t.Errorf("expected [m2 s1], got %q", got)
	}
}
