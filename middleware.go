package jrpc2

import (
	"context"

	"github.com/go-json-experiment/json/jsontext"
)

// CallInfo describes the request a hook is inspecting.
type CallInfo struct {
	Method      string         // Method name being called
	Params      jsontext.Value // Raw JSON parameters
	Credentials Credentials    // Caller identity decoded by the transport
}

// Hook is a pre-dispatch middleware hook. Hooks run in registration order
// before the procedure is invoked; the first hook that returns an error
// aborts the request and the error becomes the request's response. Hooks
// never see a response object.
type Hook func(ctx context.Context, call *CallInfo) error

// runHooks executes the hooks in order, stopping at the first failure.
func runHooks(ctx context.Context, hooks []Hook, call *CallInfo) error {
	for _, hook := range hooks {
		if err := hook(ctx, call); err != nil {
			return err
		}
	}
	return nil
}
