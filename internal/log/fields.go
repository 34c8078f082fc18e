package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldYear        = "year"
	FieldMonth       = "month"
	FieldExternalID  = "external_id"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldProvenance  = "provenance"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentCategorize = "categorize"
	ComponentReport     = "report"
	ComponentFeed       = "feed"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpCompile  = "compile"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
