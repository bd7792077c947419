// Package server exposes retrieval, ranking and form filling over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/metrics"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/store"
	"github.com/ppiankov/fieldscout/internal/worker"
)

// Error codes returned in the JSON error envelope
const (
	CodeBadRequest       = "bad_request"
	CodeUnknownDomain    = "unknown_domain"
	CodeInvalidField     = "invalid_field"
	CodeInvalidDocument  = "invalid_document"
	CodeTooManyDocuments = "too_many_documents"
	CodeJobNotFound      = "job_not_found"
	CodeJobNotReady      = "job_not_ready"
	CodeMappingNotFound  = "mapping_not_found"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler writes a response for a known error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires the matching pipeline, the job dispatcher and the store to
// HTTP handlers
type Server struct {
	cfg        model.ServerConfig
	filler     *pipeline.Filler
	dispatcher *worker.Dispatcher
	store      store.Store
	limiter    *worker.Limiter
	logger     *zap.Logger
	version    string

	errorHandlers []errorHandler
}

// Option configures a Server
type Option func(*Server)

// WithLimiter enables per-client rate limiting
func WithLimiter(l *worker.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithVersion sets the version reported by /health
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates an HTTP API server
func New(
	cfg model.ServerConfig,
	filler *pipeline.Filler,
	dispatcher *worker.Dispatcher,
	st store.Store,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:        cfg,
		filler:     filler,
		dispatcher: dispatcher,
		store:      st,
		logger:     logger,
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(model.ErrUnknownDomain, http.StatusBadRequest, CodeUnknownDomain),
		sentinelHandler(model.ErrInvalidField, http.StatusBadRequest, CodeInvalidField),
		sentinelHandler(model.ErrInvalidDocument, http.StatusBadRequest, CodeInvalidDocument),
		sentinelHandler(model.ErrJobNotFound, http.StatusNotFound, CodeJobNotFound),
		sentinelHandler(model.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
	}
	metrics.RegisterMatchingMetrics()
	return s
}

// Handler builds the chi router with the middleware chain
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}
		r.Use(limitBody(s.cfg.MaxBodyBytes))

		r.Get("/domains", s.handleDomains)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/rank", s.handleRank)
		r.Post("/disambiguate", s.handleDisambiguate)
		r.Post("/validate", s.handleValidate)
		r.Post("/fill", s.handleFill)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Delete("/{id}", s.handleDeleteJob)
			r.Get("/{id}/results", s.handleJobResults)
			r.Get("/{id}/history", s.handleJobHistory)
		})

		r.Put("/field-memory", s.handleRememberField)
		r.Get("/field-memory", s.handleRecallField)
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Close(shutdownCtx); err != nil {
			s.logger.Warn("job dispatcher did not drain", zap.Error(err))
		}
	}
	return nil
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// decode reads a JSON body, reporting oversized bodies and syntax errors as 400
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
