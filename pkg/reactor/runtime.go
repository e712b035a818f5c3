package reactor

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/reactor/pkg/reactor"

// Runtime is the incremental-computation engine: an ownership tree of nodes,
// the reverse dependency index from store keys to reactions, and the pending
// queue drained once per tick.
type Runtime struct {
	store Store

	// nodes is the arena of live nodes.
	nodes  map[NodeID]*node
	roots  []NodeID
	lastID NodeID

	// subs maps a store key to the reactions whose current scope contains it.
	subs map[Key]map[NodeID]struct{}

	// pending holds reactions in order of first dirtying; pendingSet
	// deduplicates. Entries removed from pendingSet are skipped on pop.
	pending    []NodeID
	pendingSet map[NodeID]struct{}

	draining bool
	passes   uint64
	budget   *drainBudget

	// batchDepth > 0 defers write fan-out until the outermost Batch returns.
	batchDepth int
	batched    []Key

	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	debug     DebugConfig
}

// New creates a Runtime. Without WithStore it uses a fresh MemoryStore.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		nodes:      make(map[NodeID]*node),
		subs:       make(map[Key]map[NodeID]struct{}),
		pendingSet: make(map[NodeID]struct{}),
		budget:     newDrainBudget(DefaultMaxDrainRuns),
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.store == nil {
		rt.store = NewMemoryStore()
	}
	rt.store.Notify(rt.onWrite)
	return rt
}

// Store returns the store adapter.
func (rt *Runtime) Store() Store {
	return rt.store
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Reader returns a non-tracking context for reading cells and signals
// outside any reaction.
func (rt *Runtime) Reader() *Rcx {
	return &Rcx{rt: rt}
}

// Write stores a host-owned value under key. Reactions that read key are
// marked pending.
func (rt *Runtime) Write(key Key, value any) Version {
	return rt.store.Write(key, value)
}

// Batch runs fn with write fan-out deferred until fn returns. Versions still
// bump on every write; reactions are marked pending once, in the order their
// keys were first written.
//
// Batches can be nested. Fan-out happens when the outermost batch completes.
func (rt *Runtime) Batch(fn func()) {
	rt.batchDepth++
	defer func() {
		rt.batchDepth--
		if rt.batchDepth == 0 {
			keys := rt.batched
			rt.batched = nil
			for _, k := range keys {
				rt.markKey(k)
			}
		}
	}()
	fn()
}

// onWrite is the store notification hook.
func (rt *Runtime) onWrite(key Key) {
	if rt.batchDepth > 0 {
		rt.batched = append(rt.batched, key)
		return
	}
	rt.markKey(key)
}
