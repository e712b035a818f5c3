package reactor

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxDrainRuns bounds the number of reaction runs in one drain pass.
const DefaultMaxDrainRuns = 10000

// DebugConfig controls debug logging.
// All options default to off; enable them individually during development.
type DebugConfig struct {
	// LogReactionRuns logs every reaction run with its duration.
	LogReactionRuns bool

	// LogDestroy logs every destroyed node.
	LogDestroy bool

	// LogDrains logs a summary line for every non-empty drain pass.
	LogDrains bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithStore sets the store adapter. The default is a new MemoryStore.
func WithStore(store Store) Option {
	return func(rt *Runtime) {
		rt.store = store
	}
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithTracer sets the tracer used for drain pass spans. The default is the
// global OpenTelemetry tracer provider's tracer for this package.
func WithTracer(tracer trace.Tracer) Option {
	return func(rt *Runtime) {
		if tracer != nil {
			rt.tracer = tracer
		}
	}
}

// WithObserver adds an Observer. Multiple observers are called in the order
// they were added.
func WithObserver(obs Observer) Option {
	return func(rt *Runtime) {
		if obs != nil {
			rt.observers = append(rt.observers, obs)
		}
	}
}

// WithMaxDrainRuns sets the per-pass run limit. Values <= 0 restore the
// default.
func WithMaxDrainRuns(n int) Option {
	return func(rt *Runtime) {
		if n <= 0 {
			n = DefaultMaxDrainRuns
		}
		rt.budget = newDrainBudget(n)
	}
}

// WithDebug sets the debug logging configuration.
func WithDebug(cfg DebugConfig) Option {
	return func(rt *Runtime) {
		rt.debug = cfg
	}
}
