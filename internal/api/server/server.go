// Package server wires the HTTP API: routes, CORS, request logging and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/api/handlers"
	"github.com/a4way/report-agent-workflow/internal/tools"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

// Config holds server configuration
type Config struct {
	Address        string
	AllowedOrigins []string
}

// Server represents the API server
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	manager    *workflow.Manager
	logger     zerolog.Logger
}

// NewServer creates a new server instance. exporter may be nil when PDF
// export is disabled.
func NewServer(cfg Config, manager *workflow.Manager, registry *tools.Registry, exporter handlers.Exporter, logger zerolog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		manager: manager,
		logger:  logger,
	}
	s.setupRoutes(registry, exporter)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(s.loggingMiddleware(s.router))

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(registry *tools.Registry, exporter handlers.Exporter) {
	workflowHandler := handlers.NewWorkflowHandler(s.manager, exporter, s.logger)
	toolHandler := handlers.NewToolHandler(registry)
	healthHandler := handlers.NewHealthHandler(s.manager)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	s.router.HandleFunc("/", healthHandler.Info).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	// mux only reports 405 from the router that owns the route
	api.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Workflow routes
	api.HandleFunc("/workflow/start", workflowHandler.Start).Methods("POST")
	api.HandleFunc("/workflow/{id}/status", workflowHandler.Status).Methods("GET")
	api.HandleFunc("/workflow/{id}/logs", workflowHandler.Logs).Methods("GET")
	api.HandleFunc("/workflow/{id}/report/download", workflowHandler.Download).Methods("GET")
	api.HandleFunc("/workflow/{id}/summary", workflowHandler.Summary).Methods("POST")
	api.HandleFunc("/workflow/{id}", workflowHandler.Delete).Methods("DELETE")
	api.HandleFunc("/workflows", workflowHandler.List).Methods("GET")

	// Tool routes
	api.HandleFunc("/tools", toolHandler.ListTools).Methods("GET")
	api.HandleFunc("/tools/{name}", toolHandler.ExecuteTool).Methods("POST")
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Bool("simulation", s.manager.Simulated()).Msg("starting api server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and then waits for running workflows
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down api server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.manager.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("workflow shutdown: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Info().Msg("server exited")
	return nil
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request and puts the logger in its context.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(s.logger.WithContext(r.Context())))

		event := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
