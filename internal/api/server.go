// Package api is the HTTP facade over the Smart Router (spec.md §6): one
// route endpoint, a health check, and the operator-facing decision audit
// surface, wired through gorilla/mux the way the teacher's API server is.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/txplain/bankrouter/internal/handler"
	"github.com/txplain/bankrouter/internal/models"
	"github.com/txplain/bankrouter/internal/router"
)

// Server is the HTTP facade over a *router.Router.
type Server struct {
	mux     *mux.Router
	rt      *router.Router
	synth   *handler.Synthesizer // nil when no LLM client is configured
	address string
	logger  zerolog.Logger
	server  *http.Server
}

// NewServer builds a Server bound to an already-constructed Router.
func NewServer(address string, rt *router.Router, logger zerolog.Logger) *Server {
	s := &Server{
		mux:     mux.NewRouter(),
		rt:      rt,
		address: address,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

// WithSynthesizer attaches a post-routing LLM synthesizer. Answers are
// best-effort: a synthesis failure is logged but never fails the
// request, since the routing decision itself already succeeded.
func (s *Server) WithSynthesizer(synth *handler.Synthesizer) *Server {
	s.synth = synth
	return s
}

func (s *Server) setupRoutes() {
	s.mux.Use(s.corsMiddleware)
	s.mux.Use(s.loggingMiddleware)

	s.mux.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	v1 := s.mux.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/route", s.handleRoute).Methods("POST")
	v1.HandleFunc("/decisions/{request_id}", s.handleExplainDecision).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "bankrouter",
	})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}
	if req.Utterance == "" {
		s.writeError(w, http.StatusBadRequest, "utterance is required", nil)
		return
	}

	decision := s.rt.Route(r.Context(), req)
	resp := decision.ToResponse()

	if s.synth != nil && !decision.IsClarify() {
		for _, err := range s.synth.Annotate(r.Context(), decision, &resp) {
			s.logger.Warn().Err(err).Msg("llm synthesis failed for an operation")
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplainDecision(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]
	decision, ok := s.rt.ExplainDecision(requestID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no decision recorded for that request id", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, decision.ToResponse())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg(message)
	}
	s.writeJSON(w, status, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.RequestURI).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("address", s.address).Msg("starting bankrouter API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down bankrouter API server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
