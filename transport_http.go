package jrpc2

import (
	"encoding/base64"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// authHeader is the alternative credential header for clients that cannot
// send HTTP Basic authentication. Its value is base64(username:password).
const authHeader = "X-RPC-Auth"

// httpHandler serves the engine over HTTP POST.
type httpHandler struct {
	engine  *Engine
	allowed []netip.Prefix
}

// HandlerOption configures the HTTP transport.
type HandlerOption func(*httpHandler)

// WithAllowedIPs restricts callers to the given prefixes. Requests from
// other addresses are rejected before the engine runs. With no prefixes
// configured every address is allowed.
func WithAllowedIPs(prefixes ...netip.Prefix) HandlerOption {
	return func(h *httpHandler) {
		h.allowed = append(h.allowed, prefixes...)
	}
}

// Handler returns an http.Handler serving the engine. The handler accepts
// POST with an application/json body, decodes caller credentials from
// Basic auth or the X-RPC-Auth header, and writes the response body the
// engine produces. A payload of only notifications yields 204 No Content.
func (e *Engine) Handler(opts ...HandlerOption) http.Handler {
	h := &httpHandler{engine: e}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "JSON-RPC requires POST", http.StatusMethodNotAllowed)
		return
	}

	// Per JSON-RPC over HTTP, Content-Type must be application/json.
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	if !h.remoteAllowed(r.RemoteAddr) {
		writeResponse(w, http.StatusForbidden,
			encode(newErrorResponse(nullLiteral, NewError(CodeForbidden, "address not allowed"))))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(w, http.StatusOK,
			encode(newErrorResponse(nullLiteral, NewError(CodeParseError, "parse error"))))
		return
	}

	ctx := WithCredentials(r.Context(), credentialsFromRequest(r))
	out := h.engine.Process(ctx, body)
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeResponse(w, http.StatusOK, out)
}

// remoteAllowed checks the remote address against the allow-list. An
// unparsable remote address is rejected unless the list is empty.
func (h *httpHandler) remoteAllowed(remoteAddr string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	for _, p := range h.allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// credentialsFromRequest decodes the caller identity from Basic auth,
// falling back to the X-RPC-Auth header.
func credentialsFromRequest(r *http.Request) Credentials {
	if user, pass, ok := r.BasicAuth(); ok {
		return Credentials{Username: user, Password: pass}
	}
	if v := r.Header.Get(authHeader); v != "" {
		if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
			if user, pass, ok := strings.Cut(string(decoded), ":"); ok {
				return Credentials{Username: user, Password: pass}
			}
		}
	}
	return Credentials{}
}

func writeResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
