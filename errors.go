package jrpc2

import "fmt"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Server error codes reserved for host-level failures (-32000..-32099).
const (
	CodeServerError  = -32000
	CodeUnauthorized = -32001
	CodeForbidden    = -32002
)

// internalErrorMsg is the fixed message used when an application error is
// withheld from the client. It never carries the original error text.
const internalErrorMsg = "internal error"

// Error represents an error that can be sent to the client as a JSON-RPC
// error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// RPCErrorCode reports the numeric code carried by the error. Host error
// types may implement the same method to expose a code for relay without
// wrapping in *Error.
func (e *Error) RPCErrorCode() int {
	return e.Code
}

// NewError creates a new protocol error.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new protocol error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a new protocol error wrapping an existing error.
// The cause is visible through Unwrap but is never serialized.
func WrapError(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// ErrInvalidRequest returns an invalid request error.
func ErrInvalidRequest(reason string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "invalid request", Data: reason}
}

// ErrMethodNotFound returns a method not found error.
func ErrMethodNotFound(method string) *Error {
	return NewError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", method))
}

// ErrInvalidParams returns an invalid params error.
func ErrInvalidParams(reason string) *Error {
	return NewError(CodeInvalidParams, fmt.Sprintf("invalid params: %s", reason))
}

// ErrInternal returns an internal error. The cause is retained for logging
// but its text is not exposed to the client.
func ErrInternal(cause error) *Error {
	return WrapError(CodeInternalError, internalErrorMsg, cause)
}
