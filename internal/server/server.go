// Package server exposes the audit engine over HTTP: a WebSocket endpoint
// that streams audit narratives to connected observers, plus static file
// serving for the demo dashboard.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"guardian/internal/audit"
	"guardian/internal/logging"
)

// SessionFactory builds a fresh audit session for one connection. Each
// observer gets its own cursor.
type SessionFactory func() *audit.Session

// Server serves the dashboard and the audit WebSocket.
type Server struct {
	addr       string
	staticDir  string
	newSession SessionFactory

	httpSrv *http.Server
}

// New creates a server. staticDir may be empty to disable file serving.
func New(addr, staticDir string, factory SessionFactory) *Server {
	s := &Server{
		addr:       addr,
		staticDir:  staticDir,
		newSession: factory,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			mux.Handle("/", http.FileServer(http.Dir(staticDir)))
		} else {
			logging.Server("static dir %s not found, file serving disabled", staticDir)
		}
	}

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Server("listening on %s", s.addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Server("shutting down")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
