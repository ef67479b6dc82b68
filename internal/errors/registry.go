package errors

import (
	"maps"
	"slices"
)

// ErrorTemplate is the fixed part of a registered code.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// startup, L001..L009
	"L001": {
		Category: CategoryStartup,
		Message:  "main.lua could not be found!",
		Detail:   "The runtime searches the script root recursively for a file named main.lua and found none.",
	},
	"L002": {
		Category: CategoryStartup,
		Message:  "Entry script failed to load",
		Detail:   "main.lua was found but raised an error while it was being executed for the first time.",
	},

	// script, L010..L019
	"L010": {
		Category: CategoryScript,
		Message:  "Script runtime error",
		Detail:   "A top-level script handler raised an error. The application ends.",
	},
	"L011": {
		Category: CategoryScript,
		Message:  "Deferred callback failed",
		Detail:   "A callback queued for the frame loop raised an error. Remaining callbacks are discarded and the application ends.",
	},

	// network, L020..L029
	"L020": {
		Category: CategoryNetwork,
		Message:  "Peer does not exist",
		Detail:   "A packet was addressed to a peer id that is not in the peer registry. The packet was dropped.",
	},
	"L021": {
		Category: CategoryNetwork,
		Message:  "No upstream connection",
		Detail:   "A packet was addressed to the server but this process is not connected as a client. The packet was dropped.",
	},
	"L022": {
		Category: CategoryNetwork,
		Message:  "Malformed packet addressing",
		Detail:   "The packet named a channel without a peer or a peer without a channel in a way no addressing mode accepts.",
	},
	"L023": {
		Category: CategoryNetwork,
		Message:  "Queue full",
		Detail:   "A bounded network queue reached its capacity and the newest item was dropped.",
	},

	// config, L030..L039
	"L030": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "lime.json contains a value outside its accepted range.",
	},
	"L031": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "lime.json exists but could not be read or parsed as JSON.",
	},

	// cli, L040..L049
	"L040": {
		Category: CategoryCLI,
		Message:  "Script syntax check failed",
		Detail:   "One or more scripts under the script root failed to compile.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	return slices.Sorted(maps.Keys(registry))
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
