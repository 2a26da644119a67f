package errors

// ErrorCode represents a machine-readable error category.
type ErrorCode string

// Caller-side errors (never retried)
const (
	// ErrCodeConfiguration indicates the request or client is misconfigured.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeMissingArgument indicates a required argument was nil or empty.
	ErrCodeMissingArgument ErrorCode = "MISSING_ARGUMENT"
	// ErrCodeUnsupportedContentType indicates no factory is registered for a content type.
	ErrCodeUnsupportedContentType ErrorCode = "UNSUPPORTED_CONTENT_TYPE"
)

// Wire errors
const (
	// ErrCodeTransport indicates the HTTP transport failed before a response was read.
	ErrCodeTransport ErrorCode = "TRANSPORT"
	// ErrCodeTimeout indicates the request context expired.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeProtocol indicates the service answered with a failure status.
	ErrCodeProtocol ErrorCode = "PROTOCOL"
	// ErrCodeCircuitOpen indicates the request was refused because the host is failing.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
)

// Payload and credential errors
const (
	// ErrCodeDeserialization indicates a response body could not be mapped onto a model.
	ErrCodeDeserialization ErrorCode = "DESERIALIZATION"
	// ErrCodeSerialization indicates a request body could not be written.
	ErrCodeSerialization ErrorCode = "SERIALIZATION"
	// ErrCodeAuthentication indicates credentials could not be obtained.
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport: true,
	ErrCodeTimeout:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
