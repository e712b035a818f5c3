// Package reactor provides a fine-grained incremental-computation runtime.
//
// A Runtime owns a tree of nodes. Computations ("reactions") attached to
// nodes record every store key they read; when one of those keys is written,
// the reaction is queued and re-run on the next drain pass. Nothing else is
// re-run, and there is no diffing pass over an output tree: conditional and
// list reconciliation rebuild only the subtrees whose inputs changed.
//
// # Core Types
//
// Mutable[T] is a store-backed cell owned by a node:
//
//	b := rt.Builder(rt.CreateRoot("app"))
//	count := reactor.CreateMutable(b, 0)
//	count.Set(5)
//	count.Update(func(n int) int { return n + 1 })
//
// Signal[T] is a uniform read interface over constants, cells and derived
// computations:
//
//	doubled := reactor.Derived(func(cx *reactor.Rcx) int { return count.Get(cx) * 2 })
//
// Reactions re-run when the keys they read change:
//
//	b.CreateEffect(func(cx *reactor.Rcx) {
//	    fmt.Println("doubled is", doubled.Get(cx))
//	})
//
// # Reconciliation
//
// Cond and Switch replace a single subtree when a discriminant changes.
// ForEach (keyed) and ForIndex (positional) maintain one child per item and
// rebuild only the items that were added, removed or changed.
//
// # Scheduling
//
// Store writes mark dependent reactions pending. The host calls
// DrainPending once per tick; reactions dirtied during a pass run in the same
// pass, bounded by the configured run limit.
//
// # Thread Safety
//
// A Runtime is not safe for concurrent use. Hosts that need to touch it from
// several goroutines should funnel all access through one goroutine; see
// package host.
package reactor
