// Package api serves document analysis over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
)

// RequestIDHeader carries the per-request identifier
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// Mailer delivers rendered PDF reports
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, recipient string, attachment []byte) error
}

// Server exposes the analysis pipeline as a JSON API
type Server struct {
	pipeline *pipeline.Pipeline
	mailer   Mailer
	cfg      model.ServerConfig
	logger   *slog.Logger
	version  string
}

// Option configures a Server
type Option func(*Server)

// WithMailer enables the optional e-mail delivery of PDF reports
func WithMailer(m Mailer) Option {
	return func(s *Server) { s.mailer = m }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /healthz
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates an API server around p
func New(p *pipeline.Pipeline, cfg model.ServerConfig, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		cfg:      cfg,
		logger:   slog.Default(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxUploadBytes <= 0 {
		s.cfg.MaxUploadBytes = model.DefaultConfig().Server.MaxUploadBytes
	}
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/report.pdf", s.handleReportPDF)
		r.Get("/updates", s.handleUpdates)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		JSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey struct{}

// requestID assigns a UUID to each request unless the caller sent one
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom returns the request ID stored by the middleware
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"request_id", RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
