package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/iho/lendlog/internal/domain"
)

// EntryLister lists a ledger's entries in a viewer's perspective.
type EntryLister interface {
	ListEntries(ctx context.Context, input ListEntriesInput) ([]domain.Entry, error)
}

// ExportUseCase renders ledger statements.
type ExportUseCase struct {
	entries      EntryLister
	settingsRepo SettingsRepository
}

// NewExportUseCase creates a new ExportUseCase.
func NewExportUseCase(entries EntryLister, settingsRepo SettingsRepository) *ExportUseCase {
	return &ExportUseCase{
		entries:      entries,
		settingsRepo: settingsRepo,
	}
}

// ExportInput selects the entries to export. Location controls how
// timestamps are printed and defaults to UTC.
type ExportInput struct {
	From     *time.Time
	To       *time.Time
	Location *time.Location
	ViewerID string
	LedgerID string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportCSV writes the viewer's statement for a ledger as CSV and returns a
// suggested file name. The entry rows are followed by a blank row and a
// per-currency lent/borrowed/net summary.
func (uc *ExportUseCase) ExportCSV(ctx context.Context, input ExportInput, w io.Writer) (string, error) {
	entries, err := uc.entries.ListEntries(ctx, ListEntriesInput{
		ViewerID: input.ViewerID,
		LedgerID: input.LedgerID,
		From:     input.From,
		To:       input.To,
	})
	if err != nil {
		return "", err
	}

	friend := domain.DefaultFriendName
	s, err := uc.settingsRepo.Get(ctx, input.ViewerID, input.LedgerID)
	if err != nil {
		return "", err
	}
	if s != nil {
		friend = s.DisplayName()
	}

	loc := input.Location
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Date", "Time", "Type", "Amount", "Currency", "Note"}); err != nil {
		return "", err
	}

	for _, e := range entries {
		ts := e.Timestamp.In(loc)
		if err := cw.Write([]string{
			ts.Format("01/02/2006"),
			ts.Format("03:04 PM"),
			typeLabel(e.Type),
			e.Amount.StringFixed(2),
			string(e.Currency),
			e.Note,
		}); err != nil {
			return "", err
		}
	}

	if err := cw.Write([]string{""}); err != nil {
		return "", err
	}
	if err := cw.Write([]string{"Summary - " + friend}); err != nil {
		return "", err
	}

	for _, sum := range domain.Summarize(entries) {
		symbol := sum.Currency.Symbol()
		if err := cw.Write([]string{
			string(sum.Currency),
			fmt.Sprintf("Lent: %s%s", symbol, sum.Lent.StringFixed(2)),
			fmt.Sprintf("Borrowed: %s%s", symbol, sum.Borrowed.StringFixed(2)),
			fmt.Sprintf("Net: %s%s", symbol, sum.Net().StringFixed(2)),
		}); err != nil {
			return "", err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("lendlog-%s-%s.csv",
		whitespaceRun.ReplaceAllString(strings.ToLower(friend), "-"),
		time.Now().In(loc).Format("01-02-2006"),
	)

	return name, nil
}

func typeLabel(t domain.EntryType) string {
	if t == domain.EntryTypeLent {
		return "Lent"
	}
	return "Borrowed"
}
