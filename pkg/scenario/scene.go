package scenario

import (
	"fmt"
	"strings"

	"github.com/vango-dev/reactor/pkg/reactor"
)

// Cell and callback names addressable from scripts.
const (
	CellCount         = "count"
	CellVisible       = "visible"
	CellMode          = "mode"
	CellTodos         = "todos"
	CallbackIncrement = "increment"
)

// Modes understood by the details panel. Any other mode shows a summary.
const (
	ModeList     = "list"
	ModeNumbered = "numbered"
)

// Scene is a small counter and todo list built from every reconciliation
// primitive. Effects report what they render through the output function.
//
//	scene
//	├── mutable x4, callback
//	├── counter             payload "count: N"
//	└── cond
//	    └── branch
//	        └── details | hidden
//	            └── switch on mode
//	                └── branch
//	                    └── list (for_each) | numbered (for_index) | summary
type Scene struct {
	Root reactor.NodeID

	Count     reactor.Mutable[int]
	Visible   reactor.Mutable[bool]
	Mode      reactor.Mutable[string]
	Todos     reactor.Mutable[[]string]
	Increment reactor.Callback[int]

	out func(string)
}

// Build creates the scene under a new root of rt. out receives one line per
// effect run and may be nil.
func Build(rt *reactor.Runtime, out func(string)) (*Scene, error) {
	if out == nil {
		out = func(string) {}
	}
	s := &Scene{
		Root: rt.CreateRoot("scene"),
		out:  out,
	}
	b := rt.Builder(s.Root)

	s.Count = reactor.CreateMutable(b, 0)
	s.Visible = reactor.CreateMutable(b, true)
	s.Mode = reactor.CreateMutable(b, ModeList)
	s.Todos = reactor.CreateMutable(b, []string(nil))
	s.Increment = reactor.CreateCallback(b, func(cx *reactor.Rcx, by int) {
		n := s.Count.Get(cx.Untracked())
		cx.Fail(s.Count.Set(n + by))
	})

	counter := b.Spawn("counter", nil)
	counter.CreateEffect(func(cx *reactor.Rcx) {
		line := fmt.Sprintf("count: %d", s.Count.Get(cx))
		counter.SetPayload(line)
		s.out(line)
	})

	b.Cond(
		func(cx *reactor.Rcx) bool { return s.Visible.Get(cx) },
		s.buildDetails,
		func(b *reactor.Builder) {
			b.Spawn("hidden", "hidden")
			s.out("details hidden")
		},
	)

	return s, b.Err()
}

func (s *Scene) buildDetails(b *reactor.Builder) {
	details := b.Spawn("details", "visible")
	s.out("details shown")
	reactor.Switch(details, s.Mode.Get,
		reactor.Case(ModeList, s.buildList),
		reactor.Case(ModeNumbered, s.buildNumbered),
		reactor.Default[string](s.buildSummary),
	)
}

func (s *Scene) buildList(b *reactor.Builder) {
	list := b.Spawn("list", nil)
	reactor.ForEach(list, s.Todos.Get,
		func(b *reactor.Builder, item string) {
			b.SetPayload(item)
			s.out("+ " + item)
			b.OnCleanup(func() { s.out("- " + item) })
		},
		func(b *reactor.Builder) {
			b.SetPayload("nothing to do")
			s.out("nothing to do")
		},
	)
}

func (s *Scene) buildNumbered(b *reactor.Builder) {
	list := b.Spawn("numbered", nil)
	row := func(item string, i int) string { return fmt.Sprintf("%d. %s", i+1, item) }
	reactor.ForIndex(list, s.Todos.Get,
		func(b *reactor.Builder, item string, i int) {
			b.SetPayload(row(item, i))
			s.out("row " + row(item, i))
		},
		func(b *reactor.Builder, item string, i int) {
			b.SetPayload(row(item, i))
			s.out("update " + row(item, i))
		},
	)
}

func (s *Scene) buildSummary(b *reactor.Builder) {
	summary := b.Spawn("summary", nil)
	summary.CreateEffect(func(cx *reactor.Rcx) {
		todos := s.Todos.Get(cx)
		line := fmt.Sprintf("%d todo(s): %s", len(todos), strings.Join(todos, ", "))
		summary.SetPayload(line)
		s.out(line)
	})
}
