// Package scenario drives a demo scene from YAML scripts.
//
// The scene is a counter plus a todo list whose details panel can be hidden
// and shown in several modes. It exercises every reconciliation primitive of
// package reactor. A script is a list of steps that write cells, invoke the
// increment callback and tick the scheduler:
//
//	name: todos
//	steps:
//	  - {op: push, cell: todos, value: milk}
//	  - {op: tick}
//	  - {op: set, cell: mode, value: numbered}
//	  - {op: tick}
//
// Script errors carry R2xx codes and the line of the offending step.
package scenario
