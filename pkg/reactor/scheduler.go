package reactor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DrainReport summarizes one drain pass.
type DrainReport struct {
	// Pass is the 1-based sequence number of the pass.
	Pass uint64

	// Runs is the number of reactions that ran.
	Runs int

	// Skipped counts pending reactions that were dropped because none of
	// their dependencies had actually changed.
	Skipped int

	// Remaining is the number of reactions still pending after the pass.
	// It is non-zero only when the pass was aborted.
	Remaining int

	// Failures holds the recoverable per-reaction failures of the pass.
	Failures []*RunError

	Duration time.Duration
}

// Pending returns the number of reactions waiting for the next drain pass.
func (rt *Runtime) Pending() int {
	return len(rt.pendingSet)
}

// markKey marks every reaction subscribed to key as pending.
func (rt *Runtime) markKey(key Key) {
	for _, id := range rt.subscribers(key) {
		rt.markDirty(id)
	}
}

// markDirty appends id to the pending queue unless it is already queued.
// Re-dirtying a queued reaction does not move it.
func (rt *Runtime) markDirty(id NodeID) {
	if _, ok := rt.pendingSet[id]; ok {
		return
	}
	rt.pendingSet[id] = struct{}{}
	rt.pending = append(rt.pending, id)
}

// DrainPending runs every pending reaction in order of first dirtying.
// Reactions dirtied while the pass runs are appended to the same pass.
//
// The pass stops with a *CycleError once it has run the configured maximum
// number of reactions; whatever is still pending stays queued for the next
// call. Per-reaction failures (stale handles, duplicate keys, failures
// reported with Rcx.Fail) do not stop the pass; they are returned in the
// report.
//
// DrainPending is a no-op when nothing is pending. Calling it from inside a
// reaction returns ErrReentrantDrain.
func (rt *Runtime) DrainPending(ctx context.Context) (DrainReport, error) {
	if rt.draining {
		return DrainReport{}, ErrReentrantDrain
	}
	if len(rt.pendingSet) == 0 {
		rt.pending = rt.pending[:0]
		return DrainReport{Pass: rt.passes}, nil
	}

	rt.draining = true
	defer func() { rt.draining = false }()

	rt.passes++
	rt.budget.reset()
	report := DrainReport{Pass: rt.passes}

	_, span := rt.tracer.Start(ctx, "reactor.drain")
	defer span.End()

	start := time.Now()
	var drainErr error

	for len(rt.pending) > 0 {
		id := rt.pending[0]
		if _, ok := rt.pendingSet[id]; !ok {
			rt.pending = rt.pending[1:]
			continue
		}
		n, ok := rt.nodes[id]
		if !ok || n.reaction == nil {
			rt.pending = rt.pending[1:]
			delete(rt.pendingSet, id)
			continue
		}
		if !rt.budget.take() {
			drainErr = &CycleError{
				Pass:  report.Pass,
				Runs:  report.Runs,
				Limit: rt.budget.limit,
				Node:  id,
				Label: n.label,
			}
			break
		}

		rt.pending = rt.pending[1:]
		delete(rt.pendingSet, id)

		if !n.reaction.scope.Stale(rt.store) {
			report.Skipped++
			continue
		}

		report.Runs++
		if err := rt.runReaction(n); err != nil {
			re := err.(*RunError)
			report.Failures = append(report.Failures, re)
			rt.logger.Warn("reaction run failed", "node", re.Node, "label", re.Label, "error", re.Err)
		}
	}

	// Compact so the backing array does not grow across passes.
	rt.pending = append(make([]NodeID, 0, len(rt.pending)), rt.pending...)

	report.Remaining = len(rt.pendingSet)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int64("reactor.pass", int64(report.Pass)),
		attribute.Int("reactor.runs", report.Runs),
		attribute.Int("reactor.skipped", report.Skipped),
		attribute.Int("reactor.failures", len(report.Failures)),
		attribute.Int("reactor.remaining", report.Remaining),
	)
	if drainErr != nil {
		span.RecordError(drainErr)
		span.SetStatus(codes.Error, drainErr.Error())
		rt.logger.Error("drain pass aborted",
			"pass", report.Pass,
			"runs", report.Runs,
			"remaining", report.Remaining,
			"error", drainErr)
	} else if rt.debug.LogDrains {
		rt.logger.Debug("drain pass",
			"pass", report.Pass,
			"runs", report.Runs,
			"skipped", report.Skipped,
			"failures", len(report.Failures),
			"duration", report.Duration)
	}

	rt.emitDrain(report, drainErr)
	return report, drainErr
}
