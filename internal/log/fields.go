package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldEmail       = "email"
	FieldTxID        = "transaction_id"
	FieldTxType      = "transaction_type"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldUpdatedAt   = "updated_at"
	FieldAction      = "action"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSession   = "session"
	ComponentSnapshot  = "snapshot"
	ComponentSyncer    = "syncer"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentAssistant = "assistant"
	ComponentIdentity  = "identity"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpLogin    = "login"
	OpLogout   = "logout"
	OpCreate   = "create"
	OpDelete   = "delete"
	OpSave     = "save"
	OpLoad     = "load"
	OpRestore  = "restore"
	OpSync     = "sync"
	OpParse    = "parse"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
