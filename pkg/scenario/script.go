package scenario

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactor/internal/errors"
)

// Step operations.
const (
	OpSet     = "set"
	OpToggle  = "toggle"
	OpPush    = "push"
	OpRemove  = "remove"
	OpInvoke  = "invoke"
	OpTick    = "tick"
	OpDestroy = "destroy"
)

// Script is a named list of steps.
//
//	name: todo demo
//	steps:
//	  - op: set
//	    cell: count
//	    value: 3
//	  - op: push
//	    cell: todos
//	    value: write tests
//	  - op: tick
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`

	path string
}

// Step is one scripted action against the scene.
type Step struct {
	Op    string    `yaml:"op"`
	Cell  string    `yaml:"cell,omitempty"`
	Value yaml.Node `yaml:"value,omitempty"`

	Line   int `yaml:"-"`
	Column int `yaml:"-"`
}

// UnmarshalYAML records the step's position in the script.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	type plain Step
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	s.Line = node.Line
	s.Column = node.Column
	return nil
}

// String returns a short description such as "set count".
func (s Step) String() string {
	if s.Cell == "" {
		return s.Op
	}
	return s.Op + " " + s.Cell
}

// cellOps lists which cells each operation accepts. Operations absent from
// the map take no cell.
var cellOps = map[string][]string{
	OpSet:    {CellCount, CellVisible, CellMode, CellTodos},
	OpToggle: {CellVisible},
	OpPush:   {CellTodos},
	OpRemove: {CellTodos},
	OpInvoke: {CallbackIncrement},
}

// Parse decodes and validates a script. path is used only in error
// locations and may be empty.
func Parse(data []byte, path string) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.New("R200").Wrap(err).WithDetail(parseDetail(path, err))
	}
	sc.path = path
	for _, st := range sc.Steps {
		if err := sc.validate(st); err != nil {
			return nil, err
		}
	}
	return &sc, nil
}

// ParseFile reads and parses the script at path.
func ParseFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R200").Wrap(err)
	}
	return Parse(data, path)
}

// Path returns the file the script was read from, if any.
func (sc *Script) Path() string {
	return sc.path
}

func parseDetail(path string, err error) string {
	if path == "" {
		return err.Error()
	}
	return fmt.Sprintf("Failed to parse %s: %v", path, err)
}

func (sc *Script) validate(st Step) error {
	switch st.Op {
	case OpTick, OpDestroy:
		if st.Cell != "" {
			return sc.stepError("R201", st).
				WithDetail(fmt.Sprintf("%q takes no cell", st.Op))
		}
		return nil
	}

	cells, ok := cellOps[st.Op]
	if !ok {
		return sc.stepError("R201", st).
			WithDetail(fmt.Sprintf("unknown operation %q", st.Op)).
			WithSuggestion("Use one of set, toggle, push, remove, invoke, tick, destroy")
	}
	if !slices.Contains(cells, st.Cell) {
		return sc.stepError("R201", st).
			WithDetail(fmt.Sprintf("%q does not apply to cell %q", st.Op, st.Cell))
	}
	if st.Op == OpToggle {
		return nil
	}
	if st.Value.Kind == 0 {
		return sc.stepError("R202", st).
			WithDetail(fmt.Sprintf("%s needs a value", st))
	}
	if _, err := decodeValue(st); err != nil {
		return sc.stepError("R202", st).Wrap(err)
	}
	return nil
}

// decodeValue decodes a step's value into the type of its cell.
func decodeValue(st Step) (any, error) {
	switch {
	case st.Cell == CellCount || st.Cell == CallbackIncrement:
		var v int
		err := st.Value.Decode(&v)
		return v, err
	case st.Cell == CellVisible:
		var v bool
		err := st.Value.Decode(&v)
		return v, err
	case st.Cell == CellTodos && st.Op == OpSet:
		var v []string
		err := st.Value.Decode(&v)
		return v, err
	default:
		var v string
		err := st.Value.Decode(&v)
		return v, err
	}
}

func (sc *Script) stepError(code string, st Step) *errors.ReactorError {
	err := errors.New(code)
	if sc != nil && sc.path != "" {
		return err.WithLocation(sc.path, st.Line, st.Column)
	}
	err.Location = &errors.Location{Line: st.Line, Column: st.Column}
	return err
}
