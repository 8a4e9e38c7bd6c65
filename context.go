package jrpc2

import "context"

type contextKey int

const (
	credentialsKey contextKey = iota
	callKey
)

// Credentials holds the caller identity decoded by the transport. The zero
// value means an anonymous caller. Credentials are carried on the context
// of a single Process call and never outlive it.
type Credentials struct {
	Username string
	Password string
}

// WithCredentials returns a context carrying the given caller credentials.
// Transports call this once per request before handing the payload to the
// engine.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext returns the caller credentials from the context.
// Returns the zero value if none were set.
func CredentialsFromContext(ctx context.Context) Credentials {
	if c, ok := ctx.Value(credentialsKey).(Credentials); ok {
		return c
	}
	return Credentials{}
}

// CallFromContext returns the CallInfo for the request being processed.
// Returns nil if not inside a dispatch.
func CallFromContext(ctx context.Context) *CallInfo {
	if c, ok := ctx.Value(callKey).(*CallInfo); ok {
		return c
	}
	return nil
}

// withCall returns a context carrying the given call info.
func withCall(ctx context.Context, call *CallInfo) context.Context {
	return context.WithValue(ctx, callKey, call)
}
