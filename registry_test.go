package jrpc2

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/go-json-experiment/json/jsontext"
)

type sumParams struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c,omitempty"`
}

func sum(ctx context.Context, params sumParams) (int, error) {
	return params.A + params.B + params.C, nil
}

func TestRegisterCallableInvoke(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("sum", sum); err != nil {
		t.Fatal(err)
	}

	result, err := r.Invoke(context.Background(), "sum", jsontext.Value(`{"a":2,"b":3}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != 5 {
		t.Errorf("result = %v, want 5", result)
	}
}

func TestInvokeUnknownMethod(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "nope", nil)
	var perr *Error
	if !errors.As(err, &perr) || perr.Code != CodeMethodNotFound {
		t.Fatalf("err = %v, want method not found", err)
	}
}

func TestPositionalBinding(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("sum", sum); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		params  string
		want    int
		wantErr int
	}{
		{"all fields", `[1,2,3]`, 6, 0},
		{"optional omitted", `[1,2]`, 3, 0},
		{"extra ignored", `[1,2,3,4,5]`, 6, 0},
		{"required missing", `[1]`, 0, CodeInvalidParams},
		{"type mismatch", `["x",2]`, 0, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Invoke(context.Background(), "sum", jsontext.Value(tt.params))
			if tt.wantErr != 0 {
				var perr *Error
				if !errors.As(err, &perr) || perr.Code != tt.wantErr {
					t.Fatalf("err = %v, want code %d", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("invoke: %v", err)
			}
			if result != tt.want {
				t.Errorf("result = %v, want %d", result, tt.want)
			}
		})
	}
}

func TestNamedBinding(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("sum", sum); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		params  string
		want    int
		wantErr int
	}{
		{"all fields", `{"a":1,"b":2,"c":3}`, 6, 0},
		{"optional omitted", `{"a":1,"b":2}`, 3, 0},
		{"extra ignored", `{"a":1,"b":2,"debug":true}`, 3, 0},
		{"required missing", `{"a":1}`, 0, CodeInvalidParams},
		{"no params at all", ``, 0, CodeInvalidParams},
		{"scalar params", `7`, 0, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Invoke(context.Background(), "sum", jsontext.Value(tt.params))
			if tt.wantErr != 0 {
				var perr *Error
				if !errors.As(err, &perr) || perr.Code != tt.wantErr {
					t.Fatalf("err = %v, want code %d", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("invoke: %v", err)
			}
			if result != tt.want {
				t.Errorf("result = %v, want %d", result, tt.want)
			}
		})
	}
}

func TestHandlerWithoutParamsIgnoresSupplied(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("ping", func(ctx context.Context) (string, error) {
		return "pong", nil
	}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Invoke(context.Background(), "ping", jsontext.Value(`[1,2,3]`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != "pong" {
		t.Errorf("result = %v, want pong", result)
	}
}

func TestPointerParams(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("sum", func(ctx context.Context, params *sumParams) (int, error) {
		return params.A + params.B, nil
	}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Invoke(context.Background(), "sum", jsontext.Value(`{"a":4,"b":5}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != 9 {
		t.Errorf("result = %v, want 9", result)
	}
}

type counter struct {
	calls int
}

func (c *counter) Next(ctx context.Context) (int, error) {
	c.calls++
	return c.calls, nil
}

func TestRegisterMethodBoundInstance(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterMethod("next", &counter{}, "Next"); err != nil {
		t.Fatal(err)
	}

	// The live instance is reused, so state accumulates across calls.
	for want := 1; want <= 3; want++ {
		result, err := r.Invoke(context.Background(), "next", nil)
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
		if result != want {
			t.Errorf("result = %v, want %d", result, want)
		}
	}
}

func TestRegisterMethodLateBound(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterMethod("next", reflect.TypeOf(counter{}), "Next"); err != nil {
		t.Fatal(err)
	}

	// A fresh receiver is constructed per call, so state never accumulates.
	for i := 0; i < 3; i++ {
		result, err := r.Invoke(context.Background(), "next", nil)
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
		if result != 1 {
			t.Errorf("call %d: result = %v, want 1", i, result)
		}
	}
}

func TestRegisterMethodErrors(t *testing.T) {
	r := NewRegistry()

	if err := r.RegisterMethod("x", &counter{}, "NoSuchMethod"); err == nil {
		t.Error("expected error for missing method on instance")
	}
	if err := r.RegisterMethod("x", reflect.TypeOf(counter{}), "NoSuchMethod"); err == nil {
		t.Error("expected error for missing method on type")
	}
	if err := r.RegisterMethod("x", reflect.TypeOf(42), "Next"); err == nil {
		t.Error("expected error for non-struct type")
	}
	if err := r.RegisterMethod("x", nil, "Next"); err == nil {
		t.Error("expected error for nil target")
	}
}

type bulkService struct{}

func (s *bulkService) Greet(ctx context.Context) (string, error) {
	return "hello", nil
}

func (s *bulkService) Farewell(ctx context.Context) (string, error) {
	return "bye", nil
}

// Invoke collides with a reserved registry name and must be skipped.
func (s *bulkService) Invoke(ctx context.Context) (string, error) {
	return "shadow", nil
}

// NotAHandler has the wrong shape and must be skipped.
func (s *bulkService) NotAHandler(n int) int {
	return n
}

func TestRegisterObject(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterObject(&bulkService{}); err != nil {
		t.Fatal(err)
	}

	names := r.Names()
	sort.Strings(names)
	want := []string{"Farewell", "Greet"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	result, err := r.Invoke(context.Background(), "Greet", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result != "hello" {
		t.Errorf("result = %v, want hello", result)
	}
}

func TestRegisterObjectRequiresPointerToStruct(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterObject(bulkService{}); err == nil {
		t.Error("expected error for non-pointer target")
	}
	if err := r.RegisterObject(42); err == nil {
		t.Error("expected error for non-struct target")
	}
}

func TestRegisterCallableRejectsBadSignatures(t *testing.T) {
	r := NewRegistry()

	bad := []struct {
		name string
		fn   any
	}{
		{"not a function", 42},
		{"no context", func(n int) (int, error) { return n, nil }},
		{"one return", func(ctx context.Context) int { return 0 }},
		{"no error return", func(ctx context.Context) (int, int) { return 0, 0 }},
		{"scalar params", func(ctx context.Context, n int) (int, error) { return n, nil }},
		{"variadic", func(ctx context.Context, ns ...int) (int, error) { return 0, nil }},
	}
	for _, tt := range bad {
		if err := r.RegisterCallable(tt.name, tt.fn); err == nil {
			t.Errorf("%s: expected registration error", tt.name)
		}
	}
}

func TestInvokePanicRecovered(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterCallable("panic", func(ctx context.Context) (any, error) {
		panic("unexpected state")
	}); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), "panic", nil)
	var perr *Error
	if !errors.As(err, &perr) || perr.Code != CodeInternalError {
		t.Fatalf("err = %v, want internal error", err)
	}
}

func TestZeroValueRegistry(t *testing.T) {
	var r Registry
	if err := r.RegisterCallable("ping", func(ctx context.Context) (string, error) {
		return "pong", nil
	}); err != nil {
		t.Fatal(err)
	}

	result, err := r.Invoke(context.Background(), "ping", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != "pong" {
		t.Errorf("result = %v, want pong", result)
	}
}
