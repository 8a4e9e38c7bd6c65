package jrpc2

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ServerOptions configures the routes a Server exposes.
type ServerOptions struct {
	// RPCRoute is the path serving HTTP POST requests. Default: /rpc
	RPCRoute string
	// WSRoute is the path serving WebSocket upgrades. Default: /ws
	WSRoute string
	// HTTPOptions are applied to the HTTP transport handler.
	HTTPOptions []HandlerOption
}

func defaultServerOptions() ServerOptions {
	return ServerOptions{
		RPCRoute: "/rpc",
		WSRoute:  "/ws",
	}
}

// Server binds an engine to an HTTP server with graceful shutdown. The
// engine must be fully configured before Start; the server never mutates
// it.
type Server struct {
	engine     *Engine
	httpServer *http.Server
	mux        *http.ServeMux
	ws         *wsHandler
	log        *slog.Logger
}

// NewServer creates a server for the engine listening on addr.
func NewServer(engine *Engine, addr string, opts ...ServerOptions) *Server {
	options := defaultServerOptions()
	if len(opts) > 0 {
		opt := opts[0]
		if opt.RPCRoute != "" {
			options.RPCRoute = opt.RPCRoute
		}
		if opt.WSRoute != "" {
			options.WSRoute = opt.WSRoute
		}
		options.HTTPOptions = opt.HTTPOptions
	}

	ws := newWSHandler(engine)
	mux := http.NewServeMux()
	mux.Handle(options.RPCRoute, engine.Handler(options.HTTPOptions...))
	mux.Handle(options.WSRoute, ws)

	return &Server{
		engine:     engine,
		httpServer: &http.Server{Addr: addr, Handler: mux},
		mux:        mux,
		ws:         ws,
		log:        engine.log,
	}
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// StartTLS starts the HTTPS server. It blocks until the server stops.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.log.Info("starting server", "addr", s.httpServer.Addr, "tls", true)
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown stops the server from accepting new requests and shuts it down.
// Live WebSocket clients are sent a going-away close frame first. If
// timeout is not 0, the given context is wrapped in a new context with the
// given timeout.
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var release func()
		ctx, release = context.WithTimeout(ctx, timeout)
		defer release()
	}
	s.ws.closeAll()
	return s.httpServer.Shutdown(ctx)
}
