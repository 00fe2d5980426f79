// Package web serves the ice tower status page and its JSON twin.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ice-tower/internal/status"
)

// Server renders tracker snapshots over HTTP. Handlers only read the
// tracker, so they never block the control loop.
type Server struct {
	srv     *http.Server
	router  *mux.Router
	tracker *status.Tracker
}

// New builds a Server for addr. Routes: "/" and "/index.html" (HTML),
// "/index.json" (JSON). Only GET and HEAD are accepted.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker, router: mux.NewRouter()}

	for path, h := range map[string]http.HandlerFunc{
		"/":           s.page,
		"/index.html": s.page,
		"/index.json": s.json,
	} {
		s.router.HandleFunc(path, h).Methods(http.MethodGet, http.MethodHead)
	}
	s.router.Use(logRequests)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) json(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(status.FormatJSON(s.tracker.Snapshot())); err != nil {
		log.Debug().Err(err).Msg("write status json")
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("http request")
	})
}
