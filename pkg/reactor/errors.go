package reactor

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

// ErrStaleHandle is returned when a Mutable, Callback, Reaction or Builder is
// used after its node (or the owner it would attach to) has been destroyed.
// It is a recoverable, per-call failure.
var ErrStaleHandle = errors.New("reactor: stale handle")

// ErrDuplicateKey is returned when one evaluation of a keyed list yields two
// items with the same key. The list's run fails and the previous children
// are left untouched.
var ErrDuplicateKey = errors.New("reactor: duplicate key in keyed list")

// ErrUnboundedCycle is returned by DrainPending when a pass exceeds its run
// limit, usually because a reaction writes a key it also reads.
var ErrUnboundedCycle = errors.New("reactor: unbounded dirtying cycle")

// ErrInvariant reports a violated ownership-tree invariant, such as
// destroying a node twice. Internal inconsistencies panic with an
// *InvariantError instead of returning it.
var ErrInvariant = errors.New("reactor: invariant violation")

// ErrReentrantDrain is returned when DrainPending is called while a drain
// pass is already running.
var ErrReentrantDrain = errors.New("reactor: drain called from inside a drain pass")

// ErrNotWritable is returned when Set is called on a constant or derived
// Signal.
var ErrNotWritable = errors.New("reactor: signal is not writable")

// ErrTypeMismatch is returned when a stored value does not have the type the
// reader asked for.
var ErrTypeMismatch = errors.New("reactor: stored value has unexpected type")

// =============================================================================
// Typed Errors
// =============================================================================

// StaleHandleError identifies the handle that outlived its node.
type StaleHandleError struct {
	Kind string
	Node NodeID
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("reactor: stale %s handle %s", e.Kind, e.Node)
}

func (e *StaleHandleError) Unwrap() error { return ErrStaleHandle }

func staleHandle(kind string, id NodeID) error {
	return &StaleHandleError{Kind: kind, Node: id}
}

// DuplicateKeyError reports the first pair of items sharing a key.
type DuplicateKeyError struct {
	List   NodeID
	Key    any
	First  int
	Second int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("reactor: duplicate key %v in list %s at indices %d and %d",
		e.Key, e.List, e.First, e.Second)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

// CycleError is returned when a drain pass hits its run limit.
// Node is the reaction that would have run next; it and every other pending
// reaction stay queued for the next pass.
type CycleError struct {
	Pass  uint64
	Runs  int
	Limit int
	Node  NodeID
	Label string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reactor: drain pass %d aborted after %d runs (limit %d), next reaction %s %q",
		e.Pass, e.Runs, e.Limit, e.Node, e.Label)
}

func (e *CycleError) Unwrap() error { return ErrUnboundedCycle }

// InvariantError describes an ownership-tree invariant violation.
type InvariantError struct {
	Op     string
	Node   NodeID
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("reactor: invariant violation in %s on %s: %s", e.Op, e.Node, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// invariant panics with an *InvariantError. Used only for states that can
// not be reached through the public API.
func invariant(op string, id NodeID, format string, args ...any) {
	panic(&InvariantError{Op: op, Node: id, Reason: fmt.Sprintf(format, args...)})
}

// RunError wraps a failure reported during one run of a reaction.
type RunError struct {
	Node  NodeID
	Label string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("reactor: %s %s: %v", e.Label, e.Node, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func typeMismatch(key Key, want any, got any) error {
	return fmt.Errorf("%w: %s holds %T, want %T", ErrTypeMismatch, key, got, want)
}
