// Package api provides the HTTP surface for InterviewPipe.
//
// It exposes RESTful endpoints for starting interview sessions,
// submitting candidate turns, inspecting flow decisions, and ending
// interviews. Responses use the standard envelope from the models
// package.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/engine"
)

// Server hosts the HTTP API over an assembled engine.
type Server struct {
	engine *engine.Engine
	addr   string
	srv    *http.Server
}

// Opts holds server configuration applied via functional options.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address (default ":8080").
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// NewServer creates an API server over the engine.
func NewServer(eng *engine.Engine, opts ...Option) *Server {
	cfg := Opts{Addr: ":8080"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{engine: eng, addr: cfg.Addr}
}

// Run registers the routes and serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/turns", s.turnHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("GET /sessions/{id}/decisions", s.decisionsHandler)
	mux.HandleFunc("POST /sessions/{id}/end", s.endSessionHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		slog.Error("Server.Run: server failed", "error", err)
		return err
	}
}
