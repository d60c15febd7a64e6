package log

// Attribute keys shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"

	FieldUserID      = "user_id"
	FieldCoupleID    = "couple_id"
	FieldEntity      = "entity"
	FieldEntityID    = "entity_id"
	FieldSpreadsheet = "spreadsheet_id"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentPlanner  = "planner"
	ComponentAuth     = "auth"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentTemplate = "template"
	ComponentAdmin    = "admin"
)

// Error categories for FieldErrorType, used where start-up failures are
// logged before exiting.
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
)

// attrs accumulates key/value pairs for one log call. Empty optional
// values are left out.
type attrs []any

func (a attrs) add(key string, value any) attrs {
	return append(a, key, value)
}

func (a attrs) addIf(key, value string) attrs {
	if value == "" {
		return a
	}
	return append(a, key, value)
}
