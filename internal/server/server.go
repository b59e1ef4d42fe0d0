// Package server exposes the grievance engine as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/civicdesk/grievance-desk/internal/analytics"
	"github.com/civicdesk/grievance-desk/internal/classify"
	"github.com/civicdesk/grievance-desk/internal/intake"
	"github.com/civicdesk/grievance-desk/internal/ledger"
	"github.com/civicdesk/grievance-desk/internal/lifecycle"
	"github.com/civicdesk/grievance-desk/internal/media"
	"github.com/civicdesk/grievance-desk/internal/store"
)

// Config holds server configuration.
type Config struct {
	JWTSecret string
	// UploadDir, when set, is served under /uploads/ for locally stored media.
	UploadDir string
	RateLimit RateLimiterConfig
	// RequestTimeout bounds every request's context, and with it every
	// storage call a handler makes. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// DefaultRequestTimeout is used when Config.RequestTimeout is unset.
const DefaultRequestTimeout = 30 * time.Second

// Deps are the engine components the handlers call into.
type Deps struct {
	Store      store.Store
	Intake     *intake.Pipeline
	Lifecycle  *lifecycle.Machine
	Ledger     *ledger.Ledger
	Analytics  *analytics.Aggregator
	Classifier *classify.Classifier
	Media      media.Store
}

// Server is the HTTP front end of the complaint engine.
type Server struct {
	config    Config
	deps      Deps
	jwtSecret []byte
	rl        *RateLimiter
	router    chi.Router
	now       func() time.Time
	logger    *slog.Logger
}

// NewServer creates a Server. Every dependency in deps is required.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: JWT secret is required")
	}
	if deps.Store == nil || deps.Intake == nil || deps.Lifecycle == nil || deps.Ledger == nil ||
		deps.Analytics == nil || deps.Classifier == nil || deps.Media == nil {
		return nil, errors.New("server: missing dependency")
	}
	s := &Server{
		config:    cfg,
		deps:      deps,
		jwtSecret: []byte(cfg.JWTSecret),
		rl:        NewRateLimiter(cfg.RateLimit),
		now:       time.Now,
		logger:    logger,
	}
	s.routes()
	return s, nil
}

// SetClock overrides the time source used for token validation and rate
// limiting (for testing).
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.rl.SetClock(now)
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(RequestScopeMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(SecurityHeadersMiddleware)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(IPRateLimitMiddleware(s.rl))
	r.Use(s.ActorMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, kindNotFound, "no such route", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed", nil)
	})

	r.Get("/healthz", s.handleHealth)

	if s.config.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.With(FilingRateLimitMiddleware(s.rl)).Post("/complaints", s.handleFile)

		r.Route("/complaints/{trackingID}", func(r chi.Router) {
			r.Get("/", s.handleGetComplaint)
			r.Get("/activity", s.handleActivity)

			r.Group(func(r chi.Router) {
				r.Use(RequireActor)
				r.Post("/comments", s.handleComment)
				r.Post("/attachments", s.handleAttachment)
				r.Post("/satisfaction", s.handleSatisfaction)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff)
				r.Post("/status", s.handleStatus)
				r.Post("/assign", s.handleAssign)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireStaff)
			r.Get("/complaints", s.handleList)
			r.Get("/analytics", s.handleAnalytics)
		})

		r.With(RequireAdmin).Post("/users", s.handleRegisterUser)
	})

	s.router = r
}

func (s *Server) requestTimeout() time.Duration {
	if s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return DefaultRequestTimeout
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop releases resources held by the server (e.g. rate limiter goroutine).
func (s *Server) Stop() {
	s.rl.Stop()
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.deps.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
