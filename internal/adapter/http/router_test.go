package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/adapter/http/handler"
	apimiddleware "github.com/iho/lendlog/internal/adapter/http/middleware"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/auth"
	"github.com/iho/lendlog/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_HeaderIdentityRequired(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without %s, got %d", apimiddleware.UserIDHeader, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil)
	req.Header.Set(apimiddleware.UserIDHeader, "alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with %s, got %d: %s", apimiddleware.UserIDHeader, rec.Code, rec.Body.String())
	}
}

func TestNewRouter_BearerAuthentication(t *testing.T) {
	jwt := auth.NewJWTManager("router-test-secret", time.Hour)
	ledgers := &stubLedgerService{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.TokenVerifier = jwt
		cfg.LedgerHandler = handler.NewLedgerHandler(ledgers)
	}))

	// The identity header is ignored once tokens are required.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil)
	req.Header.Set(apimiddleware.UserIDHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	token, err := jwt.Generate("bob", "bob@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a token, got %d", rec.Code)
	}
	if ledgers.lastUser != "bob" {
		t.Fatalf("expected caller bob from token subject, got %q", ledgers.lastUser)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ledgers/", nil)
	req.Header.Set(apimiddleware.UserIDHeader, "alice")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if store.claimedKey != "alice:/api/v1/ledgers/:key-123" {
		t.Fatalf("expected a per-user key, got %q", store.claimedKey)
	}
	if !store.completed {
		t.Fatalf("expected the response to be stored")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/currencies",
		"GET /api/v1/rates",
		"POST /api/v1/entries/",
		"POST /api/v1/entries/import",
		"PATCH /api/v1/entries/{id}",
		"DELETE /api/v1/entries/{id}",
		"POST /api/v1/entries/{id}/approve",
		"POST /api/v1/entries/{id}/reject",
		"POST /api/v1/entries/{id}/resend",
		"POST /api/v1/entries/{id}/restore",
		"POST /api/v1/ledgers/",
		"POST /api/v1/ledgers/join",
		"GET /api/v1/ledgers/{id}/entries",
		"GET /api/v1/ledgers/{id}/history",
		"GET /api/v1/ledgers/{id}/balances",
		"GET /api/v1/ledgers/{id}/export.csv",
		"PUT /api/v1/ledgers/{id}/settings",
		"GET /api/v1/portfolio",
		"GET /api/v1/portfolio/stream",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:    handler.NewHealthHandler(nil, nil),
		EntryHandler:     handler.NewEntryHandler(nil),
		LedgerHandler:    handler.NewLedgerHandler(&stubLedgerService{}),
		PortfolioHandler: handler.NewPortfolioHandler(nil, nil, zerolog.Nop()),
		ExportHandler:    handler.NewExportHandler(nil),
		Logger:           zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubLedgerService struct {
	lastUser string
}

func (s *stubLedgerService) CreateLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	s.lastUser = userID
	return &domain.Ledger{ID: "ledger", User1ID: userID, InviteCode: "abcd1234"}, nil
}

func (s *stubLedgerService) JoinLedger(ctx context.Context, userID, code string) (*domain.Ledger, error) {
	return nil, domain.ErrInvalidInviteCode
}

func (s *stubLedgerService) ListLedgers(ctx context.Context, userID string) ([]usecase.LedgerView, error) {
	s.lastUser = userID
	return []usecase.LedgerView{}, nil
}

func (s *stubLedgerService) ListDeletedLedgers(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return []domain.Ledger{}, nil
}

func (s *stubLedgerService) GetSettings(ctx context.Context, userID, ledgerID string) (domain.LedgerSettings, error) {
	return domain.LedgerSettings{}, nil
}

func (s *stubLedgerService) UpdateSettings(ctx context.Context, input usecase.UpdateSettingsInput) (*domain.LedgerSettings, error) {
	return &domain.LedgerSettings{}, nil
}

func (s *stubLedgerService) DeleteLedger(ctx context.Context, userID, ledgerID string) error {
	return nil
}

func (s *stubLedgerService) RestoreLedger(ctx context.Context, userID, ledgerID string) error {
	return nil
}

type stubIdempotencyStore struct {
	claimedKey string
	completed  bool
}

func (s *stubIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	s.claimedKey = key
	return true, nil, nil
}

func (s *stubIdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.completed = true
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
