package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Unknown hook",
		Detail:   "An element names a hook in phx-hook that is not in the registration table.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Duplicate hook registration",
		Detail:   "Two hooks were registered under the same name. Hook names must be unique.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Invalid hook definition",
		Detail:   "A hook was registered with an empty name or a nil factory.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Invalid selector",
		Detail:   "A target selector could not be parsed; no elements were matched.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E004",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "WebSocket connection failed",
		Detail:   "Unable to establish the live connection to the server.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "CSRF token missing",
		Detail:   "The page has no <meta name=\"csrf-token\"> element with a content attribute.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "CSRF token rejected",
		Detail:   "The server did not accept the CSRF token sent with the connection.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E062",
	},
	"E063": {
		Category: CategoryProtocol,
		Message:  "Invalid message format",
		Detail:   "The received message could not be decoded.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E063",
	},
	"E064": {
		Category: CategoryProtocol,
		Message:  "Invalid JS command",
		Detail:   "A phx-* attribute holds a command list that could not be parsed or names an unknown operation.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E064",
	},
	"E065": {
		Category: CategoryProtocol,
		Message:  "Connection already open",
		Detail:   "A page holds exactly one live connection. Connect was called twice.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E065",
	},
	"E066": {
		Category: CategoryProtocol,
		Message:  "Message too large",
		Detail:   "The message exceeds the maximum allowed size.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E066",
	},
	"E067": {
		Category: CategoryProtocol,
		Message:  "Connection closed",
		Detail:   "The live connection is closed; the message was not sent.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E067",
	},

	// ============================================
	// Security Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategorySecurity,
		Message:  "Remote exec method not allowed",
		Detail:   "Only focus, blur, click, reset and submit may be invoked through phx:js-exec.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E080",
	},
	"E081": {
		Category: CategorySecurity,
		Message:  "Remote exec invocation failed",
		Detail:   "An allowed method failed on one of the matched elements.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E081",
	},
	"E082": {
		Category: CategorySecurity,
		Message:  "Exec request rejected",
		Detail:   "POST /api/exec needs a JSON body, a same-origin or absent Origin header and the server's exec token.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E082",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The livehooks.yaml file could not be read or parsed.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid live path",
		Detail:   "The live path must start with '/'.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Timer durations must be positive.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E122",
	},

	// ============================================
	// Storage Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryStorage,
		Message:  "Store unavailable",
		Detail:   "The SQLite database could not be opened or migrated.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E140",
	},
	"E141": {
		Category: CategoryStorage,
		Message:  "Unknown list item",
		Detail:   "A reorder referenced an item that does not belong to the list.",
		DocURL:   "https://vango.dev/docs/livehooks/errors/E141",
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
