package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lendlog/internal/adapter/http/dto"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	CreateLedger(ctx context.Context, userID string) (*domain.Ledger, error)
	JoinLedger(ctx context.Context, userID, code string) (*domain.Ledger, error)
	ListLedgers(ctx context.Context, userID string) ([]usecase.LedgerView, error)
	ListDeletedLedgers(ctx context.Context, userID string) ([]domain.Ledger, error)
	GetSettings(ctx context.Context, userID, ledgerID string) (domain.LedgerSettings, error)
	UpdateSettings(ctx context.Context, input usecase.UpdateSettingsInput) (*domain.LedgerSettings, error)
	DeleteLedger(ctx context.Context, userID, ledgerID string) error
	RestoreLedger(ctx context.Context, userID, ledgerID string) error
}

// LedgerHandler handles ledger membership and settings.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// Create opens a new ledger with the caller as its first party.
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	ledger, err := h.ledgerUC.CreateLedger(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "failed to create ledger", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LedgerFromDomain(ledger, userID))
}

// Join joins a ledger by invite code.
func (h *LedgerHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.JoinLedgerRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	ledger, err := h.ledgerUC.JoinLedger(r.Context(), userID, req.InviteCode)
	if err != nil {
		writeDomainError(w, "failed to join ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(ledger, userID))
}

// List lists the caller's active ledgers with their settings.
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	views, err := h.ledgerUC.ListLedgers(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "failed to list ledgers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgersFromViews(views, userID))
}

// ListDeleted lists the caller's deleted ledgers.
func (h *LedgerHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	ledgers, err := h.ledgerUC.ListDeletedLedgers(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "failed to list deleted ledgers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgersFromDomain(ledgers, userID))
}

// GetSettings returns the caller's settings for a ledger.
func (h *LedgerHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	settings, err := h.ledgerUC.GetSettings(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(settings))
}

// UpdateSettings changes the caller's settings for a ledger.
func (h *LedgerHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateSettingsRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput(userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "invalid settings", err)
		return
	}

	settings, err := h.ledgerUC.UpdateSettings(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(*settings))
}

// Delete soft-deletes a ledger.
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.ledgerUC.DeleteLedger(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete ledger", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restore brings back a deleted ledger.
func (h *LedgerHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.ledgerUC.RestoreLedger(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to restore ledger", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
