package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/adapter/http/dto"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

const keepAliveInterval = 25 * time.Second

// PortfolioService defines the behavior needed by PortfolioHandler.
type PortfolioService interface {
	GetPortfolio(ctx context.Context, input usecase.GetPortfolioInput) (*domain.Portfolio, error)
	GetLedgerBalances(ctx context.Context, viewerID, ledgerID string) ([]domain.NetBalance, error)
	Watch(ctx context.Context, input usecase.GetPortfolioInput, onUpdate func(*domain.Portfolio)) error
}

// PortfolioHandler serves balances, the portfolio and its live stream.
type PortfolioHandler struct {
	portfolioUC PortfolioService
	rates       usecase.RateProvider
	logger      zerolog.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioUC PortfolioService, rates usecase.RateProvider, logger zerolog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolioUC: portfolioUC, rates: rates, logger: logger}
}

// Get returns the caller's portfolio, converted when ?currency= is set.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	input, ok := h.portfolioInput(w, r)
	if !ok {
		return
	}

	p, err := h.portfolioUC.GetPortfolio(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to compute portfolio", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PortfolioFromDomain(p))
}

// Stream pushes the portfolio as server-sent events whenever it changes.
func (h *PortfolioHandler) Stream(w http.ResponseWriter, r *http.Request) {
	input, ok := h.portfolioInput(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	started := false

	send := func(event string, payload []byte) {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if event != "" {
			fmt.Fprintf(w, "event: %s\n", event)
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if err := rc.Flush(); err != nil {
			h.logger.Debug().Err(err).Msg("portfolio stream flush failed")
		}
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Only this goroutine writes to w. Watch runs alongside and hands
	// each recomputed portfolio over.
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	updates := make(chan *domain.Portfolio)
	errc := make(chan error, 1)
	go func() {
		errc <- h.portfolioUC.Watch(ctx, input, func(p *domain.Portfolio) {
			select {
			case updates <- p:
			case <-ctx.Done():
			}
		})
	}()

	for {
		select {
		case p := <-updates:
			data, err := json.Marshal(dto.PortfolioFromDomain(p))
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to encode portfolio")
				continue
			}
			send("portfolio", data)
		case <-ticker.C:
			if started {
				fmt.Fprint(w, ": keep-alive\n\n")
				_ = rc.Flush()
			}
		case err := <-errc:
			if err != nil && !started {
				writeDomainError(w, "failed to watch portfolio", err)
			}
			return
		}
	}
}

// LedgerBalances returns the caller's net balances for one ledger.
func (h *PortfolioHandler) LedgerBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	ledgerID := chi.URLParam(r, "id")
	balances, err := h.portfolioUC.GetLedgerBalances(r.Context(), userID, ledgerID)
	if err != nil {
		writeDomainError(w, "failed to compute balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerBalancesResponse{
		LedgerID: ledgerID,
		Balances: dto.BalancesFromDomain(balances),
		Settled:  domain.IsSettled(balances),
	})
}

// Rates returns the current rate snapshot.
func (h *PortfolioHandler) Rates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.RatesFromDomain(h.rates.GetRates(r.Context())))
}

// Currencies returns the supported currency catalog.
func (h *PortfolioHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.CurrenciesFromDomain(domain.Currencies))
}

func (h *PortfolioHandler) portfolioInput(w http.ResponseWriter, r *http.Request) (usecase.GetPortfolioInput, bool) {
	userID, ok := callerID(w, r)
	if !ok {
		return usecase.GetPortfolioInput{}, false
	}

	currency, err := parseCurrencyQuery(r, "currency")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return usecase.GetPortfolioInput{}, false
	}

	return usecase.GetPortfolioInput{ViewerID: userID, ReportingCurrency: currency}, true
}
