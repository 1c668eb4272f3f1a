package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lendlog/internal/adapter/http/middleware"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

type entryServiceStub struct {
	createFn     func(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	updateFn     func(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	deleteFn     func(ctx context.Context, actorID, entryID string) error
	restoreFn    func(ctx context.Context, actorID, entryID string) (*domain.Entry, error)
	transitionFn func(ctx context.Context, actorID, entryID string, action domain.LifecycleAction) (*domain.Entry, error)
	importFn     func(ctx context.Context, actorID, ledgerID string, records []usecase.ImportEntry) (int, error)
	listFn       func(ctx context.Context, input usecase.ListEntriesInput) ([]domain.Entry, error)
	deletedFn    func(ctx context.Context, viewerID, ledgerID string) ([]domain.Entry, error)
	historyFn    func(ctx context.Context, viewerID, ledgerID string, limit, offset int) ([]*domain.AuditLog, error)
}

func (s *entryServiceStub) CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error) {
	return s.createFn(ctx, input)
}

func (s *entryServiceStub) UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error) {
	return s.updateFn(ctx, input)
}

func (s *entryServiceStub) DeleteEntry(ctx context.Context, actorID, entryID string) error {
	return s.deleteFn(ctx, actorID, entryID)
}

func (s *entryServiceStub) RestoreEntry(ctx context.Context, actorID, entryID string) (*domain.Entry, error) {
	return s.restoreFn(ctx, actorID, entryID)
}

func (s *entryServiceStub) Transition(ctx context.Context, actorID, entryID string, action domain.LifecycleAction) (*domain.Entry, error) {
	return s.transitionFn(ctx, actorID, entryID, action)
}

func (s *entryServiceStub) ImportEntries(ctx context.Context, actorID, ledgerID string, records []usecase.ImportEntry) (int, error) {
	return s.importFn(ctx, actorID, ledgerID, records)
}

func (s *entryServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]domain.Entry, error) {
	return s.listFn(ctx, input)
}

func (s *entryServiceStub) ListDeletedEntries(ctx context.Context, viewerID, ledgerID string) ([]domain.Entry, error) {
	return s.deletedFn(ctx, viewerID, ledgerID)
}

func (s *entryServiceStub) History(ctx context.Context, viewerID, ledgerID string, limit, offset int) ([]*domain.AuditLog, error) {
	return s.historyFn(ctx, viewerID, ledgerID, limit, offset)
}

type ledgerServiceStub struct {
	createFn         func(ctx context.Context, userID string) (*domain.Ledger, error)
	joinFn           func(ctx context.Context, userID, code string) (*domain.Ledger, error)
	listFn           func(ctx context.Context, userID string) ([]usecase.LedgerView, error)
	updateSettingsFn func(ctx context.Context, input usecase.UpdateSettingsInput) (*domain.LedgerSettings, error)
	deleteFn         func(ctx context.Context, userID, ledgerID string) error
}

func (s *ledgerServiceStub) CreateLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	return s.createFn(ctx, userID)
}

func (s *ledgerServiceStub) JoinLedger(ctx context.Context, userID, code string) (*domain.Ledger, error) {
	return s.joinFn(ctx, userID, code)
}

func (s *ledgerServiceStub) ListLedgers(ctx context.Context, userID string) ([]usecase.LedgerView, error) {
	return s.listFn(ctx, userID)
}

func (s *ledgerServiceStub) ListDeletedLedgers(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return nil, nil
}

func (s *ledgerServiceStub) GetSettings(ctx context.Context, userID, ledgerID string) (domain.LedgerSettings, error) {
	return domain.LedgerSettings{UserID: userID, LedgerID: ledgerID}, nil
}

func (s *ledgerServiceStub) UpdateSettings(ctx context.Context, input usecase.UpdateSettingsInput) (*domain.LedgerSettings, error) {
	return s.updateSettingsFn(ctx, input)
}

func (s *ledgerServiceStub) DeleteLedger(ctx context.Context, userID, ledgerID string) error {
	return s.deleteFn(ctx, userID, ledgerID)
}

func (s *ledgerServiceStub) RestoreLedger(ctx context.Context, userID, ledgerID string) error {
	return nil
}

type portfolioServiceStub struct {
	getFn      func(ctx context.Context, input usecase.GetPortfolioInput) (*domain.Portfolio, error)
	balancesFn func(ctx context.Context, viewerID, ledgerID string) ([]domain.NetBalance, error)
	watchFn    func(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error
}

func (s *portfolioServiceStub) GetPortfolio(ctx context.Context, input usecase.GetPortfolioInput) (*domain.Portfolio, error) {
	return s.getFn(ctx, input)
}

func (s *portfolioServiceStub) GetLedgerBalances(ctx context.Context, viewerID, ledgerID string) ([]domain.NetBalance, error) {
	return s.balancesFn(ctx, viewerID, ledgerID)
}

func (s *portfolioServiceStub) Watch(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error {
	return s.watchFn(ctx, input, onUpdate)
}

type rateProviderStub struct {
	snapshot domain.RateSnapshot
}

func (s rateProviderStub) GetRates(context.Context) domain.RateSnapshot {
	return s.snapshot
}

type exportServiceStub struct {
	exportFn func(ctx context.Context, input usecase.ExportInput, w io.Writer) (string, error)
}

func (s *exportServiceStub) ExportCSV(ctx context.Context, input usecase.ExportInput, w io.Writer) (string, error) {
	return s.exportFn(ctx, input, w)
}

// newRequest builds a request from userID with chi URL params set.
func newRequest(method, target, body, userID string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}
