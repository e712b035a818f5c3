package reactor

import "time"

// Observer receives scheduler and ownership events. Observers are called
// synchronously on the runtime's goroutine and must not call back into the
// runtime.
type Observer interface {
	// OnReactionRun is called after every reaction run. err is the run's
	// failure, or nil.
	OnReactionRun(id NodeID, label string, d time.Duration, err error)

	// OnDrain is called after every drain pass that had pending work.
	OnDrain(report DrainReport, err error)

	// OnDestroy is called for every destroyed node, children first.
	OnDestroy(id NodeID, label string)

	// OnReconcile is called after a conditional or list reconciliation
	// changed (or confirmed) its children.
	OnReconcile(id NodeID, label string, stats ReconcileStats)
}

// ReconcileStats counts the structural work done by one reconciliation run.
type ReconcileStats struct {
	Built     int `json:"built"`
	Reused    int `json:"reused"`
	Updated   int `json:"updated"`
	Destroyed int `json:"destroyed"`
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the methods you need.
type NopObserver struct{}

func (NopObserver) OnReactionRun(NodeID, string, time.Duration, error) {}
func (NopObserver) OnDrain(DrainReport, error)                         {}
func (NopObserver) OnDestroy(NodeID, string)                           {}
func (NopObserver) OnReconcile(NodeID, string, ReconcileStats)         {}

func (rt *Runtime) emitRun(id NodeID, label string, d time.Duration, err error) {
	for _, o := range rt.observers {
		o.OnReactionRun(id, label, d, err)
	}
}

func (rt *Runtime) emitDrain(report DrainReport, err error) {
	for _, o := range rt.observers {
		o.OnDrain(report, err)
	}
}

func (rt *Runtime) emitDestroy(id NodeID, label string) {
	for _, o := range rt.observers {
		o.OnDestroy(id, label)
	}
}

func (rt *Runtime) emitReconcile(id NodeID, label string, stats ReconcileStats) {
	for _, o := range rt.observers {
		o.OnReconcile(id, label, stats)
	}
}
