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
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldPerson     = "person"
	FieldBatchID    = "batch_id"
	FieldRows       = "rows"
	FieldEvent      = "event"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentSummary   = "summary"
	ComponentRecurring = "recurring"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentArchive   = "archive"
)

// Operations defines standard operation names
const (
	OpExport  = "export"
	OpStartup = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithLedger adds the month/person/batch triple identifying a ledger change.
func (f LogFields) WithLedger(month, person, batchID string) LogFields {
	if month != "" {
		f[FieldMonth] = month
	}
	if person != "" {
		f[FieldPerson] = person
	}
	if batchID != "" {
		f[FieldBatchID] = batchID
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
