package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/lendlog/internal/adapter/http"
	"github.com/iho/lendlog/internal/adapter/http/handler"
	"github.com/iho/lendlog/internal/adapter/http/middleware"
	"github.com/iho/lendlog/internal/adapter/ratesource"
	postgresRepo "github.com/iho/lendlog/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/lendlog/internal/adapter/repository/redis"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/auth"
	"github.com/iho/lendlog/internal/infrastructure/config"
	"github.com/iho/lendlog/internal/infrastructure/logger"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
	"github.com/iho/lendlog/internal/infrastructure/postgres"
	"github.com/iho/lendlog/internal/infrastructure/redis"
	"github.com/iho/lendlog/internal/infrastructure/refresher"
	"github.com/iho/lendlog/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "lendlog"})
	log.Logger = appLog

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger.Component(appLog, "migrate")); err != nil {
		appLog.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	appLog.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, cfg.RedisConnectTimeout)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	appLog.Info().Msg("connected to redis")

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	settingsRepo := postgresRepo.NewSettingsRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	retrier := postgresRepo.NewRetrier(logger.Component(appLog, "retrier"), m)
	idGen := postgresRepo.NewULIDGenerator()

	cache := redisRepo.NewCache(redisClient, m)
	notifier := redisRepo.NewNotifier(redisClient, logger.Component(appLog, "notifier"))
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Exchange rates
	source := ratesource.NewClient(ratesConfig(cfg), nil, logger.Component(appLog, "ratesource"))
	rates := usecase.NewExchangeRateProvider(cache, source, cfg.RatesTTL, m, logger.Component(appLog, "rates"))

	// Initialize use cases
	entryUC := usecase.NewEntryUseCase(txManager, entryRepo, ledgerRepo, auditRepo, idGen, retrier, notifier, m, logger.Component(appLog, "entries"))
	ledgerUC := usecase.NewLedgerUseCase(txManager, ledgerRepo, settingsRepo, idGen, notifier, m, logger.Component(appLog, "ledgers"))
	portfolioUC := usecase.NewPortfolioUseCase(ledgerRepo, settingsRepo, entryRepo, rates, notifier, cfg.StatusPolicy(), m, logger.Component(appLog, "portfolio"))
	exportUC := usecase.NewExportUseCase(entryUC, settingsRepo)

	// Initialize handlers
	routerCfg := httpAdapter.RouterConfig{
		EntryHandler:     handler.NewEntryHandler(entryUC),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC),
		PortfolioHandler: handler.NewPortfolioHandler(portfolioUC, rates, logger.Component(appLog, "portfolio_stream")),
		ExportHandler:    handler.NewExportHandler(exportUC),
		HealthHandler: handler.NewHealthHandler(pool, handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})),
		IdempotencyStore: idempotencyStore,
		Metrics:          m,
		Logger:           logger.Component(appLog, "http"),
	}

	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
		appLog.Info().Msg("bearer authentication enabled")
	} else {
		appLog.Warn().Str("header", middleware.UserIDHeader).Msg("authentication disabled, trusting identity header")
	}

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
		routerCfg.RateLimiter = limiter
		go runEvery(ctx, limiterIdleTimeout, func() { limiter.CleanupLimiters(limiterIdleTimeout) })
	}

	// Keep the rate cache warm and tell open streams about new snapshots
	rateRefresher := refresher.New(refresher.Config{
		Provider: rates,
		Notifier: notifier,
		Logger:   logger.Component(appLog, "refresher"),
		Interval: refreshInterval(cfg.RatesTTL),
	})
	go func() {
		if err := rateRefresher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLog.Error().Err(err).Msg("rate refresher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in goroutine
	go func() {
		appLog.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	appLog.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error().Err(err).Msg("server forced to shutdown")
	}

	appLog.Info().Msg("server stopped")
}

// ratesConfig maps the service configuration onto the rate source client.
func ratesConfig(cfg *config.Config) ratesource.Config {
	base, err := domain.ParseCurrency(cfg.RatesBase)
	if err != nil {
		base = domain.CurrencyUSD
	}
	return ratesource.Config{
		URL:        cfg.RatesURL,
		Base:       base,
		JSONPath:   cfg.RatesJSONPath,
		Timeout:    cfg.RatesFetchTimeout,
		MaxRetries: cfg.RatesMaxRetries,
	}
}

// refreshInterval polls a few times per TTL so a snapshot is replaced soon
// after it goes stale.
func refreshInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = usecase.DefaultRatesTTL
	}
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func runEvery(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
