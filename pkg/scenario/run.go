package scenario

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactor"
)

// Result summarizes a scenario run.
type Result struct {
	Steps    int      `json:"steps"`
	Ticks    int      `json:"ticks"`
	Runs     int      `json:"runs"`
	Failures []string `json:"failures,omitempty"`
	Output   []string `json:"output,omitempty"`
}

// Apply performs one step. Writes only mark reactions pending; a tick step
// drains them. Errors from the runtime are returned as coded errors located
// at the step. sc is only used for error locations and may be nil.
func (s *Scene) Apply(ctx context.Context, rt *reactor.Runtime, sc *Script, st Step) (reactor.DrainReport, error) {
	var err error
	switch st.Op {
	case OpTick:
		if rt.Pending() == 0 {
			return reactor.DrainReport{}, nil
		}
		var report reactor.DrainReport
		report, err = rt.DrainPending(ctx)
		if err == nil {
			return report, nil
		}
		return report, sc.runtimeError(st, err)
	case OpDestroy:
		err = rt.Destroy(s.Root)
	case OpToggle:
		err = s.Visible.Update(func(v bool) bool { return !v })
	default:
		var v any
		v, err = decodeValue(st)
		if err != nil {
			return reactor.DrainReport{}, sc.stepError("R202", st).Wrap(err)
		}
		err = s.write(st, v)
	}
	if err != nil {
		return reactor.DrainReport{}, sc.runtimeError(st, err)
	}
	return reactor.DrainReport{}, nil
}

func (s *Scene) write(st Step, v any) error {
	switch st.Op {
	case OpInvoke:
		return s.Increment.Run(v.(int))
	case OpPush:
		item := v.(string)
		return s.Todos.Update(func(todos []string) []string {
			return append(slices.Clone(todos), item)
		})
	case OpRemove:
		item := v.(string)
		return s.Todos.Update(func(todos []string) []string {
			i := slices.Index(todos, item)
			if i < 0 {
				return todos
			}
			return slices.Delete(slices.Clone(todos), i, i+1)
		})
	}

	switch st.Cell {
	case CellCount:
		return s.Count.Set(v.(int))
	case CellVisible:
		return s.Visible.Set(v.(bool))
	case CellMode:
		return s.Mode.Set(v.(string))
	case CellTodos:
		return s.Todos.Set(v.([]string))
	}
	return fmt.Errorf("no cell %q", st.Cell)
}

func (sc *Script) runtimeError(st Step, err error) *errors.ReactorError {
	re := errors.FromReactor(err)
	if re.Location == nil {
		loc := sc.stepError(re.Code, st)
		re.Location, re.Context = loc.Location, loc.Context
	}
	return re
}

// Run builds a Scene on rt and performs every step of sc, writing each line
// of output to w. A final drain runs after the last step. Run stops at the
// first step error and returns the result so far with it.
func Run(ctx context.Context, rt *reactor.Runtime, sc *Script, w io.Writer) (Result, error) {
	var res Result
	out := func(line string) {
		res.Output = append(res.Output, line)
		if w != nil {
			fmt.Fprintln(w, line)
		}
	}

	scene, err := Build(rt, out)
	if err != nil {
		return res, errors.FromReactor(err)
	}

	record := func(report reactor.DrainReport) {
		if report.Pass == 0 {
			return
		}
		res.Ticks++
		res.Runs += report.Runs
		for _, f := range report.Failures {
			res.Failures = append(res.Failures, f.Error())
		}
	}

	for _, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		report, err := scene.Apply(ctx, rt, sc, st)
		record(report)
		if err != nil {
			return res, err
		}
		res.Steps++
	}

	if rt.Pending() > 0 {
		report, err := rt.DrainPending(ctx)
		record(report)
		if err != nil {
			return res, errors.FromReactor(err)
		}
	}
	return res, nil
}
