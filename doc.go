// Package jrpc2 implements a transport-agnostic JSON-RPC 2.0 server
// engine: request and batch validation, a procedure registry, a
// pre-dispatch middleware chain, and response assembly per the
// specification (https://www.jsonrpc.org/specification).
//
// # Basic Usage
//
// Create an engine, register procedures, and serve over HTTP:
//
//	engine := jrpc2.NewEngine()
//	engine.Registry().RegisterObject(&MathProcedures{})
//	http.Handle("/rpc", engine.Handler())
//	http.ListenAndServe(":8080", nil)
//
// Procedures take a params struct whose fields bind named parameters by
// json tag and positional parameters by declaration order:
//
//	type AddParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	}
//
//	func (m *MathProcedures) Add(ctx context.Context, params AddParams) (int, error) {
//	    return params.A + params.B, nil
//	}
//
// Fields tagged omitempty or omitzero are optional; all others are
// required. Extra parameters supplied by the client are ignored.
//
// # Procedure Targets
//
// Three kinds of target can back a procedure name: a bare function
// (RegisterCallable), a method bound to a live instance (RegisterMethod
// with an instance, or RegisterObject for every exported method), and a
// late-bound type and method name (RegisterMethod with a reflect.Type),
// for which a fresh zero-value receiver is constructed on every call.
//
// # Middleware
//
// Hooks run in registration order before dispatch and can abort a request
// by returning an error:
//
//	engine.Use(func(ctx context.Context, call *jrpc2.CallInfo) error {
//	    if call.Method == "admin.delete" && call.Credentials.Username != "root" {
//	        return jrpc2.NewError(jrpc2.CodeUnauthorized, "not allowed")
//	    }
//	    return nil
//	})
//
// # Error Relay
//
// Errors returned by procedures are relayed to the client verbatim under
// the default policy. RelayOnly narrows relay to listed error types;
// everything else collapses to a generic internal error so application
// details never leak.
package jrpc2
