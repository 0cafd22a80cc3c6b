package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"
	FieldName   = "name"

	// Realtime
	FieldConnectionID   = "connection_id"
	FieldChannel        = "channel"
	FieldConversationID = "conversation_id"
	FieldCallID         = "call_id"

	// Service
	FieldService = "service"
)
