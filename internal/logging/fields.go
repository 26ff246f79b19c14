package logging

const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"
	FieldUserEmail = "user_email"
	FieldService   = "service"
	FieldEntryID   = "entry_id"
	FieldEventType = "event_type"
)
