package jrpc2

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errorType = reflect.TypeOf((*error)(nil)).Elem()

type procKind int

const (
	kindCallable procKind = iota
	kindBoundMethod
	kindLateBound
)

// procedure is the tagged invocation target registered under a name. A
// callable or bound method holds the function value directly; a late-bound
// target instantiates a fresh receiver on every call.
type procedure struct {
	kind     procKind
	fn       reflect.Value
	recvType reflect.Type // late-bound receiver struct type
	method   string       // late-bound method name
	sig      *signature
}

// Registry maps procedure names to invocation targets. It is configured by
// the host before serving and treated as read-only while requests are in
// flight.
type Registry struct {
	procs map[string]*procedure
}

// NewRegistry creates a new procedure registry. The zero value is also
// ready to use.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]*procedure)}
}

func (r *Registry) add(name string, p *procedure) {
	if r.procs == nil {
		r.procs = make(map[string]*procedure)
	}
	r.procs[name] = p
}

// reservedNames are member names RegisterObject never binds, so that a
// registry-shaped object cannot shadow the registry's own operations.
var reservedNames = func() map[string]struct{} {
	names := make(map[string]struct{})
	t := reflect.TypeOf(&Registry{})
	for i := 0; i < t.NumMethod(); i++ {
		names[t.Method(i).Name] = struct{}{}
	}
	return names
}()

// RegisterCallable binds a name to a directly-invocable function with the
// signature
//
//	func(ctx context.Context) (R, error)
//	func(ctx context.Context, params P) (R, error)
//	func(ctx context.Context, params *P) (R, error)
//
// where P is a struct. Re-registering a name silently overwrites the
// previous target.
func (r *Registry) RegisterCallable(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("procedure %q: target must be a function", name)
	}
	sig, err := parseSignature(v.Type())
	if err != nil {
		return fmt.Errorf("procedure %q: %w", name, err)
	}
	r.add(name, &procedure{kind: kindCallable, fn: v, sig: sig})
	return nil
}

// RegisterMethod binds a name to a method on target. When target is a live
// instance the same instance is reused across calls. When target is a
// reflect.Type the receiver is instantiated fresh for every call with its
// zero value. Re-registering a name silently overwrites.
func (r *Registry) RegisterMethod(name string, target any, method string) error {
	if t, ok := target.(reflect.Type); ok {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return fmt.Errorf("procedure %q: late-bound target must be a struct type, got %s", name, t)
		}
		probe := reflect.New(t).MethodByName(method)
		if !probe.IsValid() {
			return fmt.Errorf("procedure %q: type %s has no method %s", name, t, method)
		}
		sig, err := parseSignature(probe.Type())
		if err != nil {
			return fmt.Errorf("procedure %q: %s.%s: %w", name, t, method, err)
		}
		r.add(name, &procedure{kind: kindLateBound, recvType: t, method: method, sig: sig})
		return nil
	}

	v := reflect.ValueOf(target)
	if !v.IsValid() {
		return fmt.Errorf("procedure %q: target must not be nil", name)
	}
	m := v.MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("procedure %q: %s has no method %s", name, v.Type(), method)
	}
	sig, err := parseSignature(m.Type())
	if err != nil {
		return fmt.Errorf("procedure %q: %s.%s: %w", name, v.Type(), method, err)
	}
	r.add(name, &procedure{kind: kindBoundMethod, fn: m, sig: sig})
	return nil
}

// RegisterObject binds every exported method of target that has a valid
// handler signature, each under its own method name. Methods whose names
// collide with the registry's reserved names and methods with other
// signatures are skipped. Target must be a pointer to a struct.
func (r *Registry) RegisterObject(target any) error {
	v := reflect.ValueOf(target)
	t := v.Type()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct, got %s", t)
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		if _, reserved := reservedNames[m.Name]; reserved {
			continue
		}
		sig, err := parseSignature(v.Method(i).Type())
		if err != nil {
			continue
		}
		r.add(m.Name, &procedure{kind: kindBoundMethod, fn: v.Method(i), sig: sig})
	}
	return nil
}

// Has reports whether a procedure is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.procs[name]
	return ok
}

// Names returns all registered procedure names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	return names
}

// Invoke calls the procedure registered under name with the given raw JSON
// params. Unknown names yield a method not found error; binding failures
// yield an invalid params error. A panic inside the target is recovered
// and reported as an internal error.
func (r *Registry) Invoke(ctx context.Context, name string, params jsontext.Value) (result any, err error) {
	p, ok := r.procs[name]
	if !ok {
		return nil, ErrMethodNotFound(name)
	}

	fn := p.fn
	if p.kind == kindLateBound {
		fn = reflect.New(p.recvType).MethodByName(p.method)
	}

	args := []reflect.Value{reflect.ValueOf(ctx)}
	if p.sig.params != nil {
		pv, perr := p.sig.bind(params)
		if perr != nil {
			return nil, perr
		}
		args = append(args, pv)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = ErrInternal(fmt.Errorf("panic in %s: %v", name, rec))
		}
	}()

	out := fn.Call(args)
	if !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// signature holds the parameter binding plan for a handler function.
type signature struct {
	params reflect.Type // params struct type, nil when the handler takes none
	ptr    bool         // handler receives *params rather than params
	fields []paramField
}

// paramField maps one JSON parameter to a struct field. Fields tagged with
// omitempty or omitzero are optional; all others are required.
type paramField struct {
	name     string
	index    int
	required bool
}

// parseSignature validates a handler function type and extracts its
// parameter binding plan.
func parseSignature(ft reflect.Type) (*signature, error) {
	if ft.IsVariadic() {
		return nil, fmt.Errorf("handler must not be variadic")
	}
	if ft.NumIn() < 1 || ft.NumIn() > 2 || !ft.In(0).Implements(contextType) {
		return nil, fmt.Errorf("handler must take (context.Context) or (context.Context, params)")
	}
	if ft.NumOut() != 2 || !ft.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("handler must return (result, error)")
	}

	sig := &signature{}
	if ft.NumIn() == 2 {
		pt := ft.In(1)
		if pt.Kind() == reflect.Pointer {
			sig.ptr = true
			pt = pt.Elem()
		}
		if pt.Kind() != reflect.Struct {
			return nil, fmt.Errorf("params must be a struct or pointer to struct, got %s", ft.In(1))
		}
		sig.params = pt
		for i := 0; i < pt.NumField(); i++ {
			field := pt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			required := true
			if tag, ok := field.Tag.Lookup("json"); ok {
				parts := strings.Split(tag, ",")
				if parts[0] == "-" {
					continue
				}
				if parts[0] != "" {
					name = parts[0]
				}
				for _, opt := range parts[1:] {
					if opt == "omitempty" || opt == "omitzero" {
						required = false
					}
				}
			}
			sig.fields = append(sig.fields, paramField{name: name, index: i, required: required})
		}
	}
	return sig, nil
}

// bind materializes the params struct from raw JSON. Positional params
// (an array) map to struct fields in declaration order; named params (an
// object) map by field name or json tag. Missing required params fail;
// extra params are ignored for compatibility with loose clients.
func (s *signature) bind(params jsontext.Value) (reflect.Value, *Error) {
	pv := reflect.New(s.params)

	switch {
	case len(params) == 0:
		for _, f := range s.fields {
			if f.required {
				return reflect.Value{}, ErrInvalidParams("missing param: " + f.name)
			}
		}

	case kindOf(params) == '[':
		var elems []jsontext.Value
		if err := json.Unmarshal(params, &elems); err != nil {
			return reflect.Value{}, ErrInvalidParams(err.Error())
		}
		for i, f := range s.fields {
			if i >= len(elems) {
				if f.required {
					return reflect.Value{}, ErrInvalidParams("missing param: " + f.name)
				}
				continue
			}
			field := pv.Elem().Field(f.index)
			if err := json.Unmarshal(elems[i], field.Addr().Interface()); err != nil {
				return reflect.Value{}, ErrInvalidParams("param " + f.name + ": " + err.Error())
			}
		}

	case kindOf(params) == '{':
		if err := json.Unmarshal(params, pv.Interface()); err != nil {
			return reflect.Value{}, ErrInvalidParams(err.Error())
		}
		var members map[string]jsontext.Value
		if err := json.Unmarshal(params, &members); err != nil {
			return reflect.Value{}, ErrInvalidParams(err.Error())
		}
		for _, f := range s.fields {
			if _, ok := members[f.name]; !ok && f.required {
				return reflect.Value{}, ErrInvalidParams("missing param: " + f.name)
			}
		}

	default:
		return reflect.Value{}, ErrInvalidParams("params must be an array or an object")
	}

	if s.ptr {
		return pv, nil
	}
	return pv.Elem(), nil
}
