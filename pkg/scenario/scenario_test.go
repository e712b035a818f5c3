package scenario

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactor"
)

const demoScript = `name: demo
steps:
  - {op: push, cell: todos, value: a}
  - {op: push, cell: todos, value: b}
  - {op: tick}
  - {op: set, cell: count, value: 5}
  - {op: tick}
  - {op: invoke, cell: increment, value: 2}
  - {op: tick}
  - {op: set, cell: mode, value: numbered}
  - {op: tick}
  - {op: remove, cell: todos, value: a}
  - {op: tick}
  - {op: toggle, cell: visible}
`

func TestRunDemo(t *testing.T) {
	sc, err := Parse([]byte(demoScript), "")
	require.NoError(t, err)
	assert.Equal(t, "demo", sc.Name)
	require.Len(t, sc.Steps, 12)

	var buf bytes.Buffer
	res, err := Run(context.Background(), reactor.New(), sc, &buf)
	require.NoError(t, err)

	want := []string{
		"count: 0",
		"details shown",
		"nothing to do",
		"+ a",
		"+ b",
		"count: 5",
		"count: 7",
		"- b",
		"- a",
		"row 1. a",
		"row 2. b",
		"update 1. b",
		"details hidden",
	}
	assert.Equal(t, want, res.Output)
	assert.Equal(t, 12, res.Steps)
	assert.Equal(t, 6, res.Ticks)
	assert.Empty(t, res.Failures)
	assert.True(t, strings.HasPrefix(buf.String(), "count: 0\ndetails shown\n"), buf.String())
}

func TestTickWithoutWorkIsNotCounted(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - op: tick\n  - op: tick\n"), "")
	require.NoError(t, err)
	res, err := Run(context.Background(), reactor.New(), sc, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)
	assert.Zero(t, res.Ticks)
}

func TestSummaryMode(t *testing.T) {
	rt := reactor.New()
	var out []string
	s, err := Build(rt, func(line string) { out = append(out, line) })
	require.NoError(t, err)

	require.NoError(t, s.Todos.Set([]string{"x", "y"}))
	require.NoError(t, s.Mode.Set("other"))
	_, err = rt.DrainPending(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out, "2 todo(s): x, y")
	root, err := rt.Snapshot(s.Root)
	require.NoError(t, err)
	assert.Equal(t, "scene", root.Label)
}

func TestDestroyThenWriteIsStale(t *testing.T) {
	script := "steps:\n  - op: destroy\n  - op: set\n    cell: count\n    value: 1\n"
	sc, err := Parse([]byte(script), "")
	require.NoError(t, err)

	rt := reactor.New()
	res, err := Run(context.Background(), rt, sc, nil)
	require.Error(t, err)
	assert.Equal(t, "R001", errors.Code(err))
	assert.ErrorIs(t, err, reactor.ErrStaleHandle)
	assert.Equal(t, 1, res.Steps)
	assert.Empty(t, rt.Roots())

	var re *errors.ReactorError
	require.ErrorAs(t, err, &re)
	require.NotNil(t, re.Location)
	assert.Equal(t, 3, re.Location.Line)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		code   string
		line   int
	}{
		{"invalid yaml", "steps: [", "R200", 0},
		{"unknown op", "steps:\n  - op: tick\n  - op: jump\n", "R201", 3},
		{"wrong cell", "steps:\n  - {op: toggle, cell: count}\n", "R201", 2},
		{"tick with cell", "steps:\n  - {op: tick, cell: count}\n", "R201", 2},
		{"missing value", "steps:\n  - {op: set, cell: count}\n", "R202", 2},
		{"bad value", "steps:\n  - {op: set, cell: count, value: lots}\n", "R202", 2},
		{"bad list", "steps:\n  - {op: set, cell: todos, value: {a: 1}}\n", "R202", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.script), "")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.Code(err))
			if tt.line > 0 {
				var re *errors.ReactorError
				require.ErrorAs(t, err, &re)
				require.NotNil(t, re.Location)
				assert.Equal(t, tt.line, re.Location.Line)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - op: set\n    cell: nope\n    value: 1\n"), 0o644))

	_, err := ParseFile(path)
	var re *errors.ReactorError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "R201", re.Code)
	assert.Equal(t, path, re.Location.File)
	assert.NotEmpty(t, re.Context)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "R200", errors.Code(err))
}

func TestApplyWithoutScript(t *testing.T) {
	rt := reactor.New()
	s, err := Build(rt, nil)
	require.NoError(t, err)

	st := Step{Op: OpPush, Cell: CellTodos}
	require.NoError(t, st.Value.Encode("milk"))
	_, err = s.Apply(context.Background(), rt, nil, st)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Pending())

	report, err := s.Apply(context.Background(), rt, nil, Step{Op: OpTick})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Runs)
	assert.Equal(t, []string{"milk"}, s.Todos.Get(nil))
}
