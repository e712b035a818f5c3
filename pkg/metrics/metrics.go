package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reactor/pkg/reactor"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run and drain durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "reactor",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer is a reactor.Observer that records scheduler activity as
// Prometheus metrics.
//
// Metrics collected:
//   - reactor_drains_total: Counter of non-empty drain passes
//   - reactor_drain_aborts_total: Counter of passes stopped by the run limit
//   - reactor_drain_duration_seconds: Histogram of drain pass duration
//   - reactor_pending_reactions: Gauge of reactions left pending after a pass
//   - reactor_reaction_runs_total: Counter of reaction runs by label
//   - reactor_reaction_duration_seconds: Histogram of run duration by label
//   - reactor_reaction_failures_total: Counter of failed runs by label and kind
//   - reactor_nodes_destroyed_total: Counter of destroyed nodes
//   - reactor_reconcile_nodes_total: Counter of reconciliation work by label and op
type Observer struct {
	drainsTotal    prometheus.Counter
	drainAborts    prometheus.Counter
	drainDuration  prometheus.Histogram
	pending        prometheus.Gauge
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runFailures    *prometheus.CounterVec
	destroyedTotal prometheus.Counter
	reconcileTotal *prometheus.CounterVec
}

var _ reactor.Observer = (*Observer)(nil)

// New creates an Observer and registers its metrics.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	rt := reactor.New(reactor.WithObserver(metrics.New(metrics.WithRegistry(reg))))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Observer{
		drainsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drains_total",
			Help:        "Total number of drain passes that had pending work",
			ConstLabels: config.ConstLabels,
		}),

		drainAborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drain_aborts_total",
			Help:        "Total number of drain passes aborted by the run limit",
			ConstLabels: config.ConstLabels,
		}),

		drainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "drain_duration_seconds",
			Help:        "Drain pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_reactions",
			Help:        "Reactions still pending after the last drain pass",
			ConstLabels: config.ConstLabels,
		}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_runs_total",
			Help:        "Total number of reaction runs",
			ConstLabels: config.ConstLabels,
		}, []string{"label"}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_duration_seconds",
			Help:        "Reaction run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"label"}),

		runFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reaction_failures_total",
			Help:        "Total number of failed reaction runs",
			ConstLabels: config.ConstLabels,
		}, []string{"label", "kind"}),

		destroyedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_destroyed_total",
			Help:        "Total number of destroyed nodes",
			ConstLabels: config.ConstLabels,
		}),

		reconcileTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_nodes_total",
			Help:        "Subtrees built, reused, updated or destroyed by reconciliation",
			ConstLabels: config.ConstLabels,
		}, []string{"label", "op"}),
	}
}

// OnReactionRun implements reactor.Observer.
func (o *Observer) OnReactionRun(_ reactor.NodeID, label string, d time.Duration, err error) {
	o.runsTotal.WithLabelValues(label).Inc()
	o.runDuration.WithLabelValues(label).Observe(d.Seconds())
	if err != nil {
		o.runFailures.WithLabelValues(label, FailureKind(err)).Inc()
	}
}

// OnDrain implements reactor.Observer.
func (o *Observer) OnDrain(report reactor.DrainReport, err error) {
	o.drainsTotal.Inc()
	o.drainDuration.Observe(report.Duration.Seconds())
	o.pending.Set(float64(report.Remaining))
	if errors.Is(err, reactor.ErrUnboundedCycle) {
		o.drainAborts.Inc()
	}
}

// OnDestroy implements reactor.Observer.
func (o *Observer) OnDestroy(reactor.NodeID, string) {
	o.destroyedTotal.Inc()
}

// OnReconcile implements reactor.Observer.
func (o *Observer) OnReconcile(_ reactor.NodeID, label string, stats reactor.ReconcileStats) {
	add := func(op string, n int) {
		if n > 0 {
			o.reconcileTotal.WithLabelValues(label, op).Add(float64(n))
		}
	}
	add("built", stats.Built)
	add("reused", stats.Reused)
	add("updated", stats.Updated)
	add("destroyed", stats.Destroyed)
}

// FailureKind returns a low-cardinality label for a reaction failure.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, reactor.ErrStaleHandle):
		return "stale_handle"
	case errors.Is(err, reactor.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, reactor.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, reactor.ErrNotWritable):
		return "not_writable"
	default:
		return "internal"
	}
}
