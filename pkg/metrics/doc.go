// Package metrics exports reactor scheduler activity to Prometheus.
//
// An Observer is attached to a runtime with reactor.WithObserver and counts
// drain passes, reaction runs and failures, destroyed nodes and the work done
// by conditional and list reconciliation.
package metrics
