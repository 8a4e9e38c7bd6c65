package jrpc2

import (
	"context"
	"log/slog"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Engine processes decoded JSON-RPC 2.0 payloads against a procedure
// registry and a middleware chain. The registry, hooks and relay policy
// are configured by the host before serving and treated as read-only while
// requests are in flight; the engine itself holds no per-request state.
type Engine struct {
	registry *Registry
	hooks    []Hook
	relay    *RelayPolicy
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRelayPolicy sets the error relay policy. The default relays every
// error type.
func WithRelayPolicy(p *RelayPolicy) Option {
	return func(e *Engine) { e.relay = p }
}

// WithLogger sets the logger used for errors that have no client to report
// to, such as failed notifications. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRegistry sets a pre-populated procedure registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// NewEngine creates an engine with an empty registry, no hooks and the
// relay-all policy.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		relay:    RelayAll(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Registry returns the engine's procedure registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Use appends hooks to the middleware chain. Execution order is
// registration order.
func (e *Engine) Use(hooks ...Hook) {
	e.hooks = append(e.hooks, hooks...)
}

// Process executes one raw payload, a single request object or a batch
// array, and returns the serialized response body. A nil return means no
// body at all: the payload was a notification, or a batch of only
// notifications. Process never fails; every failure mode, malformed JSON
// included, is rendered into the returned body per protocol.
func (e *Engine) Process(ctx context.Context, payload []byte) []byte {
	raw := jsontext.Value(payload)

	switch kindOf(raw) {
	case '{':
		var req wireRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return encode(newErrorResponse(nullLiteral, NewError(CodeParseError, "parse error")))
		}
		resp := e.processParsed(ctx, &req)
		if resp == nil {
			return nil
		}
		return encode(resp)

	case '[':
		var elems []jsontext.Value
		if err := json.Unmarshal(raw, &elems); err != nil {
			return encode(newErrorResponse(nullLiteral, NewError(CodeParseError, "parse error")))
		}
		if len(elems) == 0 {
			return encode(newErrorResponse(nullLiteral, ErrInvalidRequest("batch must not be empty")))
		}
		resps := make([]*Response, 0, len(elems))
		for _, elem := range elems {
			if resp := e.processRequest(ctx, elem); resp != nil {
				resps = append(resps, resp)
			}
		}
		return encodeBatch(resps)

	default:
		// A top-level value that is valid JSON but not an object or an
		// array is a rejected request, not a parse failure.
		if json.Unmarshal(raw, new(jsontext.Value)) != nil {
			return encode(newErrorResponse(nullLiteral, NewError(CodeParseError, "parse error")))
		}
		return encode(newErrorResponse(nullLiteral, ErrInvalidRequest("payload must be an object or an array")))
	}
}

// processRequest handles one batch element, which the enclosing array
// parse already guarantees is valid JSON.
func (e *Engine) processRequest(ctx context.Context, raw jsontext.Value) *Response {
	var req wireRequest
	if kindOf(raw) != '{' || json.Unmarshal(raw, &req) != nil {
		return newErrorResponse(nullLiteral, ErrInvalidRequest("request must be an object"))
	}
	return e.processParsed(ctx, &req)
}

// processParsed runs the single-request state machine: structural
// validation, registry lookup, middleware chain, invocation. Returns nil
// for notifications, which produce no response even on error.
func (e *Engine) processParsed(ctx context.Context, req *wireRequest) *Response {
	method, verr := req.validate()
	if verr != nil {
		// A structurally invalid object is not a valid notification, so
		// it is answered even without an id.
		return newErrorResponse(req.id(), verr)
	}

	result, err := e.dispatch(ctx, method, req.Params)

	if req.isNotification() {
		if err != nil {
			e.log.Warn("notification failed", "method", method, "error", err)
		}
		return nil
	}
	if err != nil {
		return newErrorResponse(req.id(), e.relay.asError(err))
	}
	return newResult(req.id(), result)
}

// dispatch resolves the method, runs the middleware chain and invokes the
// procedure. Lookup precedes the hooks so an unknown method is always
// reported as method not found; the first hook failure aborts the call
// before the procedure runs.
func (e *Engine) dispatch(ctx context.Context, method string, params jsontext.Value) (any, error) {
	if !e.registry.Has(method) {
		return nil, ErrMethodNotFound(method)
	}

	call := &CallInfo{
		Method:      method,
		Params:      params,
		Credentials: CredentialsFromContext(ctx),
	}
	ctx = withCall(ctx, call)

	if err := runHooks(ctx, e.hooks, call); err != nil {
		return nil, err
	}
	return e.registry.Invoke(ctx, method, params)
}
