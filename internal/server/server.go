package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/internal/dataset"
	"github.com/inferloop/sdc/internal/engine"
	"github.com/inferloop/sdc/internal/export"
	"github.com/inferloop/sdc/internal/observability/health"
	"github.com/inferloop/sdc/pkg/constants"
)

// HTTPRecorder receives per-request observations
type HTTPRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// Dependencies are the collaborators a Server routes requests to. Only Engine
// is required.
type Dependencies struct {
	Engine    *engine.Engine
	Health    *health.HealthMonitor
	Metrics   HTTPRecorder
	Exporters *export.Registry
	// Defaults fill request parameters left unset; nil uses the built-ins
	Defaults *engine.Defaults
	// MetricsHandler is mounted on /metrics of the API router when set
	MetricsHandler http.Handler
	Build          BuildInfo
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *logrus.Logger
	config     *Config

	engine    *engine.Engine
	health    *health.HealthMonitor
	metrics   HTTPRecorder
	exporters *export.Registry
	fixer     *dataset.Fixer
	defaults  engine.Defaults
	build     BuildInfo
}

// NewServer creates a new HTTP server instance
func NewServer(config *Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.New()
	}

	if deps.Engine == nil {
		deps.Engine = engine.New(engine.Options{}, logger)
	}
	if deps.Health == nil {
		deps.Health = health.NewHealthMonitor(0, logger)
	}
	if deps.Exporters == nil {
		deps.Exporters = export.NewRegistry()
	}
	defaults := engine.DefaultParameters()
	if deps.Defaults != nil {
		defaults = *deps.Defaults
	}

	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		config:    config,
		engine:    deps.Engine,
		health:    deps.Health,
		metrics:   deps.Metrics,
		exporters: deps.Exporters,
		fixer:     dataset.NewFixer(logger),
		defaults:  defaults,
		build:     deps.Build,
	}

	s.setupRoutes(deps.MetricsHandler)
	s.setupMiddleware()

	s.httpServer = &http.Server{
		Addr:         config.GetAddress(),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Start serves until Stop is called. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.logger.Infof("Starting HTTP server on %s", s.config.GetAddress())

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.Info("Starting HTTPS server")
		return s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	}

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("Error shutting down HTTP server: %v", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// ServeHTTP lets the server be driven directly, e.g. by httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes sets up the HTTP routes
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix(constants.APIPrefix).Subrouter()

	api.HandleFunc("/capabilities", s.handleCapabilities).Methods(http.MethodGet)

	// Risk
	api.HandleFunc("/risk/assess", s.handleAssessRisk).Methods(http.MethodPost)

	// Anonymization
	api.HandleFunc("/privacy/k-anonymity", s.handleKAnonymity).Methods(http.MethodPost)
	api.HandleFunc("/privacy/l-diversity", s.handleLDiversity).Methods(http.MethodPost)
	api.HandleFunc("/privacy/t-closeness", s.handleTCloseness).Methods(http.MethodPost)
	api.HandleFunc("/privacy/differential-privacy", s.handleDifferentialPrivacy).Methods(http.MethodPost)
	api.HandleFunc("/privacy/synthetic-data", s.handleSyntheticData).Methods(http.MethodPost)

	// Utility
	api.HandleFunc("/utility/measure", s.handleMeasureUtility).Methods(http.MethodPost)

	// Operations
	api.HandleFunc("/operations", s.handleListOperations).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id}", s.handleGetOperation).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id}", s.handleDeleteOperation).Methods(http.MethodDelete)
	api.HandleFunc("/operations/{id}/download", s.handleDownload).Methods(http.MethodGet)

	// Data preparation
	api.HandleFunc("/data/parse", s.handleParse).Methods(http.MethodPost)
	api.HandleFunc("/data/quality", s.handleQuality).Methods(http.MethodPost)
	api.HandleFunc("/data/autofix", s.handleAutoFix).Methods(http.MethodPost)

	// Preflight requests only need the CORS headers
	if s.config.EnableCORS {
		s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

// setupMiddleware installs the middleware chain on the router
func (s *Server) setupMiddleware() {
	s.router.Use(s.middlewareChain()...)
}

// GetRouter returns the HTTP router
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *Config {
	return s.config
}
