package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/adapter/http/handler"
	"github.com/iho/lendlog/internal/adapter/http/middleware"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	EntryHandler     *handler.EntryHandler
	LedgerHandler    *handler.LedgerHandler
	PortfolioHandler *handler.PortfolioHandler
	ExportHandler    *handler.ExportHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore middleware.IdempotencyStore
	RateLimiter      *middleware.RateLimiter
	// TokenVerifier enables bearer authentication. When nil the caller is
	// taken from the X-User-ID header.
	TokenVerifier middleware.TokenVerifier
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, cfg.Metrics))
		} else {
			r.Use(middleware.HeaderIdentity)
		}

		// Idempotency runs after authentication so keys are scoped per user.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Logger).Wrap)
		}

		r.Get("/currencies", cfg.PortfolioHandler.Currencies)
		r.Get("/rates", cfg.PortfolioHandler.Rates)

		// Entries
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntryHandler.Create)
			r.Post("/import", cfg.EntryHandler.Import)
			r.Patch("/{id}", cfg.EntryHandler.Update)
			r.Delete("/{id}", cfg.EntryHandler.Delete)
			r.Post("/{id}/restore", cfg.EntryHandler.Restore)
			r.Post("/{id}/approve", cfg.EntryHandler.Approve)
			r.Post("/{id}/reject", cfg.EntryHandler.Reject)
			r.Post("/{id}/resend", cfg.EntryHandler.Resend)
		})

		// Ledgers
		r.Route("/ledgers", func(r chi.Router) {
			r.Post("/", cfg.LedgerHandler.Create)
			r.Get("/", cfg.LedgerHandler.List)
			r.Post("/join", cfg.LedgerHandler.Join)
			r.Get("/deleted", cfg.LedgerHandler.ListDeleted)
			r.Delete("/{id}", cfg.LedgerHandler.Delete)
			r.Post("/{id}/restore", cfg.LedgerHandler.Restore)
			r.Get("/{id}/settings", cfg.LedgerHandler.GetSettings)
			r.Put("/{id}/settings", cfg.LedgerHandler.UpdateSettings)
			r.Get("/{id}/entries", cfg.EntryHandler.List)
			r.Get("/{id}/entries/deleted", cfg.EntryHandler.ListDeleted)
			r.Get("/{id}/history", cfg.EntryHandler.History)
			r.Get("/{id}/balances", cfg.PortfolioHandler.LedgerBalances)
			r.Get("/{id}/export.csv", cfg.ExportHandler.CSV)
		})

		// Portfolio
		r.Get("/portfolio", cfg.PortfolioHandler.Get)
		r.Get("/portfolio/stream", cfg.PortfolioHandler.Stream)
	})

	return r
}
