// Command jrpcd is a small JSON-RPC 2.0 server demonstrating the engine:
// it loads configuration from the environment (optionally a .env file),
// registers a few procedures, and serves them over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rpckit/jrpc2"
)

type EchoParams struct {
	Message string `json:"message"`
}

type Math struct{}

type AddParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func (m *Math) Add(ctx context.Context, params AddParams) (float64, error) {
	return params.A + params.B, nil
}

func (m *Math) Div(ctx context.Context, params AddParams) (float64, error) {
	if params.B == 0 {
		return 0, jrpc2.NewError(jrpc2.CodeInvalidParams, "division by zero")
	}
	return params.A / params.B, nil
}

func main() {
	_ = godotenv.Load()

	addr := os.Getenv("JRPCD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var out io.Writer = os.Stderr
	if logFile := os.Getenv("JRPCD_LOG_FILE"); logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}
	log := slog.New(slog.NewJSONHandler(out, nil))

	engine := jrpc2.NewEngine(jrpc2.WithLogger(log))

	reg := engine.Registry()
	if err := reg.RegisterCallable("echo", func(ctx context.Context, params EchoParams) (string, error) {
		return params.Message, nil
	}); err != nil {
		log.Error("register echo", "error", err)
		os.Exit(1)
	}
	if err := reg.RegisterObject(&Math{}); err != nil {
		log.Error("register math", "error", err)
		os.Exit(1)
	}

	engine.Use(func(ctx context.Context, call *jrpc2.CallInfo) error {
		log.Info("rpc call", "method", call.Method, "user", call.Credentials.Username)
		return nil
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Handle("/rpc", engine.Handler())
	r.Handle("/ws", engine.WebSocket())

	srv := &http.Server{Addr: addr, Handler: r}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
