package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/lendlog/internal/usecase"
)

// ExportService defines the behavior needed by ExportHandler.
type ExportService interface {
	ExportCSV(ctx context.Context, input usecase.ExportInput, w io.Writer) (string, error)
}

// ExportHandler serves ledger statements as CSV downloads.
type ExportHandler struct {
	exportUC ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportUC ExportService) *ExportHandler {
	return &ExportHandler{exportUC: exportUC}
}

// CSV writes the caller's statement for a ledger.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
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

	// Buffered so a failure can still become a JSON error response.
	var buf bytes.Buffer
	filename, err := h.exportUC.ExportCSV(r.Context(), usecase.ExportInput{
		From:     from,
		To:       to,
		Location: loc,
		ViewerID: userID,
		LedgerID: chi.URLParam(r, "id"),
	}, &buf)
	if err != nil {
		writeDomainError(w, "failed to export entries", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
