package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/lendlog/internal/adapter/http/dto"
	"github.com/iho/lendlog/internal/adapter/http/middleware"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

func samplePortfolio() *domain.Portfolio {
	total := decimal.RequireFromString("12.5")
	return &domain.Portfolio{
		ReportingCurrency: domain.CurrencyUSD,
		TotalConverted:    &total,
		Total:             []domain.NetBalance{{Currency: domain.CurrencyUSD, Amount: total}},
		Ledgers: []domain.LedgerBalance{{
			LedgerID:   "ledger-1",
			FriendName: "Sam",
			HasPartner: true,
			Balances:   []domain.NetBalance{{Currency: domain.CurrencyUSD, Amount: total}},
		}},
	}
}

func TestPortfolioHandler_Get(t *testing.T) {
	var captured usecase.GetPortfolioInput
	h := NewPortfolioHandler(&portfolioServiceStub{
		getFn: func(ctx context.Context, input usecase.GetPortfolioInput) (*domain.Portfolio, error) {
			captured = input
			return samplePortfolio(), nil
		},
	}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/api/v1/portfolio?currency=usd", "", "alice", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", captured.ViewerID)
	assert.Equal(t, domain.CurrencyUSD, captured.ReportingCurrency)

	var resp dto.PortfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Ledgers, 1)
	assert.Equal(t, "Sam", resp.Ledgers[0].FriendName)
	assert.False(t, resp.Ledgers[0].Settled)
	require.NotNil(t, resp.TotalConverted)
	assert.True(t, resp.TotalConverted.Equal(decimal.RequireFromString("12.5")))
}

func TestPortfolioHandler_Get_InvalidCurrency(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Get(rec, newRequest(http.MethodGet, "/api/v1/portfolio?currency=XYZ", "", "alice", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioHandler_Stream(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{
		watchFn: func(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error {
			onUpdate(samplePortfolio())
			return nil
		},
	}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Stream(rec, newRequest(http.MethodGet, "/api/v1/portfolio/stream", "", "alice", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "event: portfolio\ndata: "), body)
	assert.Contains(t, body, `"friend_name":"Sam"`)
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

func TestPortfolioHandler_Stream_WatchFailsBeforeFirstEvent(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{
		watchFn: func(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error {
			return errors.New("redis down")
		},
	}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Stream(rec, newRequest(http.MethodGet, "/api/v1/portfolio/stream", "", "alice", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestPortfolioHandler_Stream_StopsWithClient(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{
		watchFn: func(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error {
			onUpdate(samplePortfolio())
			<-ctx.Done()
			return ctx.Err()
		},
	}, rateProviderStub{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(middleware.WithUserID(context.Background(), "alice"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/stream", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		h.Stream(httptest.NewRecorder(), req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after the client went away")
	}
}

func TestPortfolioHandler_LedgerBalances(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{
		balancesFn: func(ctx context.Context, viewerID, ledgerID string) ([]domain.NetBalance, error) {
			if ledgerID != "ledger-1" {
				return nil, domain.ErrLedgerNotFound
			}
			return []domain.NetBalance{{Currency: domain.CurrencyMAD, Amount: decimal.RequireFromString("-40")}}, nil
		},
	}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.LedgerBalances(rec, newRequest(http.MethodGet, "/api/v1/ledgers/ledger-1/balances", "", "alice", map[string]string{"id": "ledger-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.LedgerBalancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Balances, 1)
	assert.Equal(t, "-40.00 MAD", resp.Balances[0].Formatted)
	assert.False(t, resp.Settled)

	rec = httptest.NewRecorder()
	h.LedgerBalances(rec, newRequest(http.MethodGet, "/api/v1/ledgers/other/balances", "", "alice", map[string]string{"id": "other"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortfolioHandler_Rates(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{}, rateProviderStub{snapshot: domain.FallbackSnapshot()}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Rates(rec, newRequest(http.MethodGet, "/api/v1/rates", "", "alice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.RatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USD", resp.Base)
	assert.Nil(t, resp.TakenAt)
	assert.InDelta(t, 0.92, resp.Rates["EUR"], 1e-9)
}

func TestPortfolioHandler_Currencies(t *testing.T) {
	h := NewPortfolioHandler(&portfolioServiceStub{}, rateProviderStub{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Currencies(rec, newRequest(http.MethodGet, "/api/v1/currencies", "", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []dto.CurrencyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, len(domain.Currencies))
	assert.Equal(t, "MAD", resp[0].Code)
}
