package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonth       = "month"
	FieldAsOf        = "as_of"
	FieldCount       = "count"
	FieldTemplateID  = "template_id"
	FieldAmountCents = "amount_cents"
	FieldHealthScore = "health_score"
	FieldHealthLabel = "health_label"
	FieldRefreshed   = "refreshed"
	FieldBackend     = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentCLI       = "cli"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
	ComponentRecurring = "recurring"
	ComponentDashboard = "dashboard"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpMaterialize = "materialize"
	OpAggregate   = "aggregate"
	OpPublish     = "publish"
	OpConsume     = "consume"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field; a nil error adds nothing
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

func (f LogFields) WithMonth(month string) LogFields {
	f[FieldMonth] = month
	return f
}

func (f LogFields) WithAsOf(asOf string) LogFields {
	f[FieldAsOf] = asOf
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

// WithTemplate adds the fields describing a recurring template's expense
func (f LogFields) WithTemplate(id int64, amountCents int64) LogFields {
	f[FieldTemplateID] = id
	f[FieldAmountCents] = amountCents
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
