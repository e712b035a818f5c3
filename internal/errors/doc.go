// Package errors provides coded, actionable error messages for the reactor
// CLI and host.
//
// Errors returned by package reactor are plain sentinels and typed errors;
// this package maps them to stable codes with an explanation and a hint, and
// renders them for the terminal.
//
// # Error Codes
//
//   - R000-R099: runtime (stale handle, duplicate key, dirtying cycle, ...)
//   - R100-R119: configuration
//   - R200-R219: scenario scripts
//   - R300-R319: snapshot export and journal
//
// # Usage
//
//	if _, err := rt.DrainPending(ctx); err != nil {
//	    errors.PrintError(os.Stderr, errors.FromReactor(err))
//	}
//
// Scenario errors carry the script position:
//
//	err := errors.New("R201").
//	    WithLocation("demo.yaml", 7, 3).
//	    WithDetail(`unknown cell "cnt"`)
package errors
