// Package http exposes the finance API over HTTP/JSON.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// ServerConfig holds the HTTP settings taken from config.Config.
type ServerConfig struct {
	Addr          string
	APIKeyEnabled bool
	APIKey        string
	// RateLimitPerMinute caps requests per client; zero disables the limiter.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	app    *services.App
	pinger Pinger
	logger *log.Logger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// pinger may be nil, in which case /readyz always succeeds.
func NewServer(cfg ServerConfig, app *services.App, pinger Pinger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		app:      app,
		pinger:   pinger,
		logger:   logger,
		detector: security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	r.Use(
		s.tracer.Middleware,
		security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware,
		s.detector.Middleware,
	)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited))
	}

	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	if cfg.APIKeyEnabled {
		api.Use(apiKeyMiddleware(cfg.APIKey))
	}

	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", s.handleUpdateAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/transfer", s.handleCreateTransfer).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.handleUpsertBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", s.handleDeleteBudget).Methods(http.MethodDelete)

	api.HandleFunc("/reports/monthly-summary", s.handleMonthlySummary).Methods(http.MethodGet)

	s.Handler = r
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)

		tm := s.tracer.GetMetrics()
		dm := s.detector.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", tm.TotalRequests,
			"server_errors", tm.ServerErrors,
			"suspicious_requests", dm.SuspiciousRequests)
	})
	return shutdownErr
}
