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
	FieldAccountID   = "account_id"
	FieldCycleID     = "cycle_id"
	FieldBucket      = "bucket"
	FieldAmountCents = "amount_cents"
	FieldOutcome     = "outcome"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpStart    = "start_cycle"
	OpExpense  = "add_expense"
	OpClose    = "close_cycle"
	OpAllocate = "allocate_surplus"
	OpRollover = "apply_rollover"
	OpAbsorb   = "absorb_deficit"
	OpWithdraw = "withdraw"
	OpDeposit  = "deposit"
	OpReset    = "reset_bucket"
	OpSnapshot = "snapshot"
	OpRestore  = "restore"
	OpExport   = "export"
)
