// Package inspect serves a live view of a runtime for debugging.
//
// Routes:
//
//	GET  /healthz          liveness
//	GET  /api/tree         snapshot of every root subtree
//	GET  /api/tree/{id}    snapshot of one subtree
//	GET  /api/stats        node counts and the last drain pass
//	POST /api/tick         drain now and return the pass
//	GET  /metrics          Prometheus metrics
//	GET  /ws               WebSocket stream of drain passes
//
// Every handler reaches the runtime through host.Loop, so the server never
// touches it concurrently with reactions.
package inspect
