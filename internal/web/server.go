// Package web provides the HTTP API for loading, inspecting and cleaning
// data files.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fillereine/MathE/internal/config"
	"github.com/Fillereine/MathE/internal/core"
	"github.com/Fillereine/MathE/internal/web/middleware"
)

// Server is the HTTP server for the cleaning API.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	gatherer prometheus.Gatherer
	router   *chi.Mux
	server   *http.Server
	limiters []*middleware.RateLimiter
}

// NewServer creates a new Server. gatherer backs /metrics and may be nil.
func NewServer(service *core.Service, cfg *config.Config, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		gatherer: gatherer,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security, s.rejectAuth))

		r.Get("/status", s.handleStatus)

		// Endpoints that take an uploaded file
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newRateLimiter(s.cfg.Rate.UploadLimit).Handler)
			}
			r.Post("/inspect", s.handleInspect)
			r.Post("/clean", s.handleClean)
			r.Post("/clean/download", s.handleDownload)
			r.Post("/filter", s.handleFilter)
			r.Post("/histogram", s.handleHistogram)
		})
	})
}

func (s *Server) newRateLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, time.Minute, func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errors.New("rate limit exceeded"), http.StatusTooManyRequests)
	})
	s.limiters = append(s.limiters, rl)
	return rl
}

func (s *Server) rejectAuth(w http.ResponseWriter, r *http.Request, status int, reason string) {
	s.respondError(w, r, errors.New(reason), status)
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(ctx context.Context) error {
	for _, rl := range s.limiters {
		go rl.Run(ctx)
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for running jobs to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.service.Limiter().WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The API serves no HTML, so nothing may be loaded.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := gojson.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err, "request_id", chimw.GetReqID(r.Context()))
	}
}
