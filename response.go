package jrpc2

import (
	"bytes"
	"errors"
	"reflect"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// RelayPolicy decides which application error types may expose their own
// message to the client. The default policy relays every error type; a
// narrowed policy collapses everything outside its allow-list to a generic
// internal error. Protocol errors (*Error) always relay: they carry a code
// the host chose deliberately.
type RelayPolicy struct {
	all   bool
	types map[reflect.Type]struct{}
}

// RelayAll returns the default policy: every error type is relayed.
func RelayAll() *RelayPolicy {
	return &RelayPolicy{all: true}
}

// RelayOnly returns a policy that relays only errors whose concrete type
// matches one of the given examples. All other application errors are
// replaced with a generic internal error.
func RelayOnly(examples ...error) *RelayPolicy {
	p := &RelayPolicy{types: make(map[reflect.Type]struct{})}
	for _, e := range examples {
		p.types[reflect.TypeOf(e)] = struct{}{}
	}
	return p
}

func (p *RelayPolicy) relayable(err error) bool {
	if p.all {
		return true
	}
	_, ok := p.types[reflect.TypeOf(err)]
	return ok
}

// coder is implemented by error types that carry a JSON-RPC error code.
type coder interface {
	RPCErrorCode() int
}

// asError maps an arbitrary error from the pipeline to a protocol error
// object. Relayable errors keep their own message, and their own code when
// the type carries one; everything else becomes the fixed internal error
// so application details never leak to the client.
func (p *RelayPolicy) asError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if p.relayable(err) {
		code := CodeInternalError
		var c coder
		if errors.As(err, &c) {
			code = c.RPCErrorCode()
		}
		return NewError(code, err.Error())
	}
	return NewError(CodeInternalError, internalErrorMsg)
}

// newResult builds a success response. A nil result is emitted as an
// explicit JSON null so the response always carries a result member.
func newResult(id jsontext.Value, result any) *Response {
	if result == nil {
		result = nullLiteral
	}
	return &Response{Jsonrpc: Version, Result: result, ID: id}
}

// newErrorResponse builds an error response. id is the null literal when
// the originating request's id could not be determined.
func newErrorResponse(id jsontext.Value, err *Error) *Response {
	return &Response{Jsonrpc: Version, Err: err, ID: id}
}

// encode serializes one response. A result the host cannot marshal is
// downgraded to an internal error rather than corrupting the wire.
func encode(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(newErrorResponse(resp.ID, ErrInternal(err)))
	}
	return data
}

// encodeBatch serializes a batch of responses in their original request
// order. Returns nil when the batch is empty, which the transports turn
// into an empty body.
func encodeBatch(resps []*Response) []byte {
	if len(resps) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, resp := range resps {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encode(resp))
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
