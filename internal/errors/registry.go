package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (R000-R099)
	// ============================================

	"R000": {
		Category: CategoryRuntime,
		Message:  "Reaction failed",
		Detail:   "A reaction reported a failure that is not one of the runtime's own error kinds.",
	},
	"R001": {
		Category:   CategoryRuntime,
		Message:    "Stale handle",
		Detail:     "A cell, callback or reaction was used after the node owning it was destroyed.",
		Suggestion: "Keep handles only as long as the subtree that created them, or check Alive() first",
	},
	"R002": {
		Category:   CategoryRuntime,
		Message:    "Duplicate key in keyed list",
		Detail:     "Two items in one evaluation of a keyed list share a key. The list keeps its previous children.",
		Suggestion: "Make keys unique, or use ForIndex if items have no identity",
	},
	"R003": {
		Category:   CategoryRuntime,
		Message:    "Unbounded dirtying cycle",
		Detail:     "A drain pass hit its run limit. Some reaction probably writes a cell it also reads. The remaining reactions stay pending.",
		Suggestion: "Read the cell untracked (cx.Untracked()) or move the write into a callback",
	},
	"R004": {
		Category: CategoryRuntime,
		Message:  "Ownership tree invariant violated",
		Detail:   "A node was destroyed twice or the tree is inconsistent.",
	},
	"R005": {
		Category:   CategoryRuntime,
		Message:    "Reentrant drain",
		Detail:     "DrainPending was called from inside a reaction.",
		Suggestion: "Let the host call DrainPending once per tick",
	},
	"R006": {
		Category: CategoryRuntime,
		Message:  "Signal is not writable",
		Detail:   "Set was called on a constant or derived signal.",
	},
	"R007": {
		Category: CategoryRuntime,
		Message:  "Type mismatch",
		Detail:   "A stored value does not have the type the reader asked for.",
	},

	// ============================================
	// Config Errors (R100-R119)
	// ============================================

	"R100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"R101": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No reactor.json was found.",
		Suggestion: "Create reactor.json or run without --config to use defaults",
	},
	"R102": {
		Category: CategoryConfig,
		Message:  "Invalid value",
		Detail:   "A configuration value is out of range.",
	},
	"R103": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A REACTOR_* environment variable could not be parsed.",
	},

	// ============================================
	// Scenario Errors (R200-R219)
	// ============================================

	"R200": {
		Category:   CategoryScenario,
		Message:    "Invalid scenario script",
		Detail:     "The scenario file is not valid YAML or does not match the script schema.",
		Suggestion: "A script is a list of steps such as {op: set, cell: count, value: 3}",
	},
	"R201": {
		Category: CategoryScenario,
		Message:  "Unknown step",
		Detail:   "The step names an operation or cell the scenario does not define.",
	},
	"R202": {
		Category: CategoryScenario,
		Message:  "Invalid step value",
		Detail:   "The step's value does not have the cell's type.",
	},

	// ============================================
	// Export Errors (R300-R319)
	// ============================================

	"R300": {
		Category: CategoryExport,
		Message:  "Snapshot export failed",
		Detail:   "The runtime snapshot could not be written.",
	},
	"R301": {
		Category: CategoryExport,
		Message:  "Journal unavailable",
		Detail:   "The journal database could not be opened or written.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
