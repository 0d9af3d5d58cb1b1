// Package httpserver exposes the race engine over HTTP: race submissions
// stream their event feed back as server-sent events, plus small JSON
// endpoints for diagnostics and model discovery.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"wordrace/infrastructure"
)

// Server bundles the router, the model registry, and the adapter shared by
// every race.
type Server struct {
	r        *chi.Mux
	registry *infrastructure.Registry
	adapter  infrastructure.StreamingAdapter

	mu     sync.Mutex
	active map[string]context.CancelFunc // running wordle races by id
}

// New constructs a Server, installs middleware, and registers routes.
func New(registry *infrastructure.Registry, adapter infrastructure.StreamingAdapter) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		registry: registry,
		adapter:  adapter,
		active:   make(map[string]context.CancelFunc),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(permissiveCORS)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "wordrace",
			"endpoints": []string{"/health", "GET /api/models", "POST /api/race/stream", "POST /api/wordle/stream"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.r.Get("/api/models", s.handleListModels)
	s.r.Post("/api/race/stream", s.handleCrosswordStream)
	s.r.Post("/api/wordle/stream", s.handleWordleStream)
	s.r.Post("/api/wordle/{raceID}/end", s.handleEndEarly)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router for tests.
func (s *Server) Router() chi.Router { return s.r }

// Start serves HTTP on addr until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// trackRace registers a cancel handle for end-early requests and returns
// the deregistration func.
func (s *Server) trackRace(id string, cancel context.CancelFunc) func() {
	s.mu.Lock()
	s.active[id] = cancel
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}
}

// permissiveCORS allows browser clients on any origin to open streams.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeInvalidRequest rejects a submission before any race starts.
func writeInvalidRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":   "invalid_request",
		"details": err.Error(),
	})
}
