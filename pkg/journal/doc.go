// Package journal persists a runtime's store writes and drain passes to
// SQLite for offline inspection and replay analysis.
package journal
