package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Relay
	FieldConnID      = "conn_id"
	FieldSessionID   = "session_id"
	FieldDisplayName = "display_name"
	FieldRole        = "role"
	FieldEvent       = "event"
	FieldRoom        = "room"
	FieldDelivered   = "delivered"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
