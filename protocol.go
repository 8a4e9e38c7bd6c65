package jrpc2

import (
	"bytes"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Version is the protocol version accepted and emitted by the engine.
const Version = "2.0"

var (
	versionLiteral = []byte(`"2.0"`)
	nullLiteral    = jsontext.Value("null")
)

// kindOf reports the starting kind of a raw JSON value by its first
// non-space byte: '{', '[', '"' and so on. Returns 0 for an empty value.
func kindOf(v jsontext.Value) byte {
	for _, b := range v {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

// wireRequest captures the members of a request object without committing
// to their types. Every member is kept raw so a bad member cannot prevent
// recovery of the id for error correlation.
type wireRequest struct {
	Version jsontext.Value `json:"jsonrpc"`
	Method  jsontext.Value `json:"method"`
	Params  jsontext.Value `json:"params"`
	ID      jsontext.Value `json:"id"`
}

// isNotification reports whether the request carries no id member.
func (r *wireRequest) isNotification() bool {
	return len(r.ID) == 0
}

// id returns the request id for response correlation, or the JSON null
// literal when the request did not carry one.
func (r *wireRequest) id() jsontext.Value {
	if len(r.ID) == 0 {
		return nullLiteral
	}
	return r.ID
}

// validate checks the structural invariants of a request object and
// returns the method name. The jsonrpc member must be exactly "2.0", the
// method member must be a non-empty string, and params, if present, must
// be an array or an object.
func (r *wireRequest) validate() (string, *Error) {
	if !bytes.Equal(r.Version, versionLiteral) {
		return "", ErrInvalidRequest(`jsonrpc member must be exactly "2.0"`)
	}
	if len(r.Method) == 0 || kindOf(r.Method) != '"' {
		return "", ErrInvalidRequest("method member must be a string")
	}
	var method string
	if err := json.Unmarshal(r.Method, &method); err != nil {
		return "", ErrInvalidRequest("method member must be a string")
	}
	if method == "" {
		return "", ErrInvalidRequest("method member must not be empty")
	}
	if len(r.Params) > 0 {
		if k := kindOf(r.Params); k != '[' && k != '{' {
			return "", ErrInvalidRequest("params member must be an array or an object")
		}
	}
	return method, nil
}

// Response represents a response object. Exactly one of Result and Err is
// present on the wire; the id is echoed verbatim from the request, or is
// null when it could not be determined.
type Response struct {
	Jsonrpc string         `json:"jsonrpc"`
	Result  any            `json:"result,omitzero"`
	Err     *Error         `json:"error,omitzero"`
	ID      jsontext.Value `json:"id"`
}
