package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-sender-admin/internal/domain/model"
)

const requestTimeout = 10 * time.Second

// ErrorMonitor exposes the tracked error states.
type ErrorMonitor interface {
	Active() []model.ErrorState
}

// Server is the admin HTTP surface: health, metrics and a small JSON API.
type Server struct {
	errors ErrorMonitor
	auth   *AuthManager
	apiKey string
	log    *zerolog.Logger
	now    func() time.Time
	server *http.Server
}

func NewServer(errs ErrorMonitor, auth *AuthManager, apiKey string, port int, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "AdminServer").Logger()
	s := &Server{
		errors: errs,
		auth:   auth,
		apiKey: apiKey,
		log:    &compLog,
		now:    time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID, Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(requestTimeout))
		r.Post("/session", s.handleSession)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/errors", s.handleErrors)
		})
	})
	return r
}

// Start serves until Shutdown; http.ErrServerClosed is not reported. A
// Shutdown that lands before Start makes Start return immediately.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("admin server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requireAdmin accepts either the static API key as bearer token or a session JWT.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if tok, ok := bearer(r); ok && constantTimeEqual(tok, s.apiKey) {
			next.ServeHTTP(w, r)
			return
		}
		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
