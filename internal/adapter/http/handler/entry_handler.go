package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lendlog/internal/adapter/http/dto"
	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, actorID, entryID string) error
	RestoreEntry(ctx context.Context, actorID, entryID string) (*domain.Entry, error)
	Transition(ctx context.Context, actorID, entryID string, action domain.LifecycleAction) (*domain.Entry, error)
	ImportEntries(ctx context.Context, actorID, ledgerID string, records []usecase.ImportEntry) (int, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]domain.Entry, error)
	ListDeletedEntries(ctx context.Context, viewerID, ledgerID string) ([]domain.Entry, error)
	History(ctx context.Context, viewerID, ledgerID string, limit, offset int) ([]*domain.AuditLog, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// Create records a new pending entry.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput(userID)
	if err != nil {
		writeDomainError(w, "invalid entry", err)
		return
	}

	entry, err := h.entryUC.CreateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry, userID))
}

// Update edits an entry. The type in the body is from the caller's view.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateEntryRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	input, err := req.ToUseCaseInput(userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "invalid entry", err)
		return
	}

	entry, err := h.entryUC.UpdateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to update entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, userID))
}

// Delete soft-deletes an entry.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.entryUC.DeleteEntry(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restore brings back a soft-deleted entry.
func (h *EntryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	entry, err := h.entryUC.RestoreEntry(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to restore entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, userID))
}

// Approve approves a pending entry recorded by the other party.
func (h *EntryHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.ActionApprove)
}

// Reject rejects a pending entry recorded by the other party.
func (h *EntryHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.ActionReject)
}

// Resend puts the caller's rejected entry back to pending.
func (h *EntryHandler) Resend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.ActionResend)
}

func (h *EntryHandler) transition(w http.ResponseWriter, r *http.Request, action domain.LifecycleAction) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	entry, err := h.entryUC.Transition(r.Context(), userID, chi.URLParam(r, "id"), action)
	if err != nil {
		writeDomainError(w, "failed to "+string(action)+" entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry, userID))
}

// Import bulk-loads approved entries into a ledger.
func (h *EntryHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.ImportEntriesRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, "invalid request body", err)
		return
	}

	records, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid entries", err)
		return
	}

	n, err := h.entryUC.ImportEntries(r.Context(), userID, req.LedgerID, records)
	if err != nil {
		writeDomainError(w, "failed to import entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImportResponse{Imported: n})
}

// List lists a ledger's active entries, optionally between from and to.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	loc, err := parseLocation(r)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	from, err := parseDateQuery(r, "from", loc)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	to, err := parseDateQuery(r, "to", loc)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	entries, err := h.entryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		From:     from,
		To:       to,
		ViewerID: userID,
		LedgerID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries, userID))
}

// ListDeleted lists a ledger's soft-deleted entries.
func (h *EntryHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	entries, err := h.entryUC.ListDeletedEntries(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to list deleted entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries, userID))
}

// History returns a page of a ledger's audit log, newest first.
func (h *EntryHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	logs, err := h.entryUC.History(r.Context(), userID, chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
