package http

import "time"

// Generic HTTP / JSON strings
const (
	HTTPErrorInvalidJSONText   = "invalid JSON"
	HTTPErrorInvalidAddrText   = "invalid address"
	HTTPErrorNotFoundText      = "credential not found"
	HTTPErrorBackendUnsetText  = "rendering backend not configured"
	HTTPErrorForbiddenText     = "forbidden"
	HTTPErrorForbiddenHostText = "forbidden host"
)

// Common JSON keys
const (
	JSONKeyError = "error"
	JSONKeyKind  = "kind"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Session event stream
const (
	wsSendBuffer   = 64
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

const shutdownTimeout = 5 * time.Second
