package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// EntryUseCase handles entry writes, the approval workflow and entry reads.
type EntryUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	ledgerRepo LedgerRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	retrier    Retrier
	notifier   ChangeNotifier
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewEntryUseCase creates a new EntryUseCase. retrier and notifier may be nil.
func NewEntryUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	notifier ChangeNotifier,
	metrics *metrics.Metrics,
	log zerolog.Logger,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		ledgerRepo: ledgerRepo,
		auditRepo:  auditRepo,
		idGen:      idGen,
		retrier:    retrier,
		notifier:   notifier,
		metrics:    metrics,
		log:        log,
	}
}

// CreateEntryInput represents input for recording an entry. Type is the
// author's own direction.
type CreateEntryInput struct {
	Timestamp     *time.Time
	ActorID       string
	LedgerID      string
	Type          domain.EntryType
	Currency      domain.Currency
	Note          string
	AttachmentRef string
	Amount        decimal.Decimal
}

// UpdateEntryInput carries optional changes. Type is expressed in the
// editor's perspective.
type UpdateEntryInput struct {
	Timestamp     *time.Time
	Type          *domain.EntryType
	Currency      *domain.Currency
	Note          *string
	AttachmentRef *string
	Amount        *decimal.Decimal
	ActorID       string
	EntryID       string
}

// ImportEntry is one record of a bulk import. An empty ID gets a new one.
type ImportEntry struct {
	Timestamp     time.Time
	ID            string
	Type          domain.EntryType
	Currency      domain.Currency
	Note          string
	AttachmentRef string
	Amount        decimal.Decimal
}

// ListEntriesInput selects a ledger's entries, optionally by day range.
type ListEntriesInput struct {
	From     *time.Time
	To       *time.Time
	ViewerID string
	LedgerID string
}

// CreateEntry records a new pending entry.
func (uc *EntryUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, input.LedgerID, input.ActorID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	ts := now
	if input.Timestamp != nil {
		ts = input.Timestamp.UTC()
	}

	entry := &domain.Entry{
		ID:            uc.idGen.Generate(),
		Type:          input.Type,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Note:          strings.TrimSpace(input.Note),
		AttachmentRef: input.AttachmentRef,
		Timestamp:     ts,
		CreatedAt:     now,
		CreatedBy:     input.ActorID,
		LedgerID:      input.LedgerID,
		Status:        domain.EntryStatusPending,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	err := uc.inTx(ctx, func(tx Transaction) error {
		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return err
		}
		return uc.audit(ctx, tx, entry, input.ActorID, domain.AuditActionCreated, domain.MarshalState(entry.Snapshot()))
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesCreated.Inc()
		uc.metrics.EntryAmount.WithLabelValues(string(entry.Currency)).Observe(entry.Amount.InexactFloat64())
	}

	uc.published(ctx, entry)

	return entry, nil
}

// UpdateEntry edits an entry on behalf of either party and returns it in
// the editor's perspective. A rejected entry may only be edited by its
// author, which sends it back to pending. New terms on an approved entry
// send it back to pending and may only come from its author.
func (uc *EntryUseCase) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	var updated domain.Entry
	changed := false

	err := uc.inTx(ctx, func(tx Transaction) error {
		entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, input.EntryID)
		if err != nil {
			return err
		}

		if _, err := requireMember(ctx, uc.ledgerRepo, entry.LedgerID, input.ActorID); err != nil {
			return err
		}

		next := *entry
		changes := domain.ChangeSet{}

		if input.Type != nil {
			next.Type = domain.StoredType(*entry, input.ActorID, *input.Type)
			changes.Record("type", string(entry.Type), string(next.Type))
		}
		if input.Amount != nil {
			next.Amount = *input.Amount
			if !next.Amount.Equal(entry.Amount) {
				changes.Record("amount", entry.Amount.String(), next.Amount.String())
			}
		}
		if input.Currency != nil {
			next.Currency = *input.Currency
			changes.Record("currency", string(entry.Currency), string(next.Currency))
		}
		if input.Note != nil {
			next.Note = strings.TrimSpace(*input.Note)
			changes.Record("note", entry.Note, next.Note)
		}
		if input.AttachmentRef != nil {
			next.AttachmentRef = *input.AttachmentRef
			changes.Record("attachmentRef", entry.AttachmentRef, next.AttachmentRef)
		}
		if input.Timestamp != nil {
			next.Timestamp = input.Timestamp.UTC()
			if !next.Timestamp.Equal(entry.Timestamp) {
				changes.Record("timestamp", entry.Timestamp.UnixMilli(), next.Timestamp.UnixMilli())
			}
		}

		status, err := domain.EditOutcome(*entry, input.ActorID, changes.Has("type", "amount", "currency"))
		if err != nil {
			return err
		}

		if len(changes) == 0 {
			updated = *entry
			return nil
		}

		next.Status = status
		changes.Record("status", string(entry.Status), string(next.Status))

		if err := next.Validate(); err != nil {
			return err
		}

		now := time.Now().UTC()
		next.UpdatedAt = &now

		if err := uc.entryRepo.Update(ctx, tx, &next); err != nil {
			return err
		}

		if err := uc.audit(ctx, tx, &next, input.ActorID, domain.AuditActionUpdated, changes.JSON()); err != nil {
			return err
		}

		updated = next
		changed = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		uc.countOperation("update")
		uc.published(ctx, &updated)
	}

	resolved := domain.ResolvePerspective(updated, input.ActorID)

	return &resolved, nil
}

// DeleteEntry soft-deletes an entry.
func (uc *EntryUseCase) DeleteEntry(ctx context.Context, actorID, entryID string) error {
	var deleted domain.Entry

	err := uc.inTx(ctx, func(tx Transaction) error {
		entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, entryID)
		if err != nil {
			return err
		}

		if _, err := requireMember(ctx, uc.ledgerRepo, entry.LedgerID, actorID); err != nil {
			return err
		}

		if entry.IsDeleted() {
			return domain.ErrEntryDeleted
		}

		now := time.Now().UTC()
		entry.DeletedAt = &now
		entry.UpdatedAt = &now

		if err := uc.entryRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		deleted = *entry

		return uc.audit(ctx, tx, entry, actorID, domain.AuditActionDeleted,
			domain.JSON{"snapshot": domain.MarshalState(entry.Snapshot())})
	})
	if err != nil {
		return err
	}

	uc.countOperation("delete")
	uc.published(ctx, &deleted)

	return nil
}

// RestoreEntry clears an entry's tombstone.
func (uc *EntryUseCase) RestoreEntry(ctx context.Context, actorID, entryID string) (*domain.Entry, error) {
	var restored domain.Entry

	err := uc.inTx(ctx, func(tx Transaction) error {
		entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, entryID)
		if err != nil {
			return err
		}

		if _, err := requireMember(ctx, uc.ledgerRepo, entry.LedgerID, actorID); err != nil {
			return err
		}

		if !entry.IsDeleted() {
			return domain.ErrEntryNotDeleted
		}

		now := time.Now().UTC()
		entry.DeletedAt = nil
		entry.UpdatedAt = &now

		if err := uc.entryRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		restored = *entry

		return uc.audit(ctx, tx, entry, actorID, domain.AuditActionRestored, nil)
	})
	if err != nil {
		return nil, err
	}

	uc.countOperation("restore")
	uc.published(ctx, &restored)

	resolved := domain.ResolvePerspective(restored, actorID)

	return &resolved, nil
}

// Approve confirms a pending entry. Only the counterparty may approve.
func (uc *EntryUseCase) Approve(ctx context.Context, actorID, entryID string) (*domain.Entry, error) {
	return uc.Transition(ctx, actorID, entryID, domain.ActionApprove)
}

// Reject declines a pending entry. Only the counterparty may reject.
func (uc *EntryUseCase) Reject(ctx context.Context, actorID, entryID string) (*domain.Entry, error) {
	return uc.Transition(ctx, actorID, entryID, domain.ActionReject)
}

// Resend puts a rejected entry back to pending. Only the author may resend.
func (uc *EntryUseCase) Resend(ctx context.Context, actorID, entryID string) (*domain.Entry, error) {
	return uc.Transition(ctx, actorID, entryID, domain.ActionResend)
}

// Transition applies a lifecycle action and returns the entry in the
// actor's perspective.
func (uc *EntryUseCase) Transition(ctx context.Context, actorID, entryID string, action domain.LifecycleAction) (*domain.Entry, error) {
	var moved domain.Entry

	err := uc.inTx(ctx, func(tx Transaction) error {
		entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, entryID)
		if err != nil {
			return err
		}

		if _, err := requireMember(ctx, uc.ledgerRepo, entry.LedgerID, actorID); err != nil {
			return err
		}

		to, err := domain.Transition(*entry, actorID, action)
		if err != nil {
			return err
		}

		from := entry.Status
		now := time.Now().UTC()
		entry.Status = to
		entry.UpdatedAt = &now

		if err := uc.entryRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		moved = *entry

		return uc.audit(ctx, tx, entry, actorID, domain.AuditActionUpdated, domain.StatusChange(from, to))
	})
	if err != nil {
		uc.countTransition(action, transitionOutcome(err))
		return nil, err
	}

	uc.countTransition(action, "ok")
	uc.published(ctx, &moved)

	uc.log.Debug().
		Str("entry_id", moved.ID).
		Str("action", string(action)).
		Str("status", string(moved.Status)).
		Msg("entry status changed")

	resolved := domain.ResolvePerspective(moved, actorID)

	return &resolved, nil
}

// ImportEntries upserts a batch of already agreed entries into a ledger.
// Imported entries are approved and authored by actorID. A record may only
// replace an existing entry that actorID authored in the same ledger and
// that is already approved; the batch is rejected otherwise.
func (uc *EntryUseCase) ImportEntries(ctx context.Context, actorID, ledgerID string, records []ImportEntry) (int, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, ledgerID, actorID); err != nil {
		return 0, err
	}

	if len(records) == 0 {
		return 0, nil
	}

	if len(records) > MaxImportBatch {
		return 0, fmt.Errorf("import of %d entries exceeds the limit of %d", len(records), MaxImportBatch)
	}

	now := time.Now().UTC()

	entries := make([]*domain.Entry, 0, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = uc.idGen.Generate()
		}

		ts := r.Timestamp.UTC()
		if r.Timestamp.IsZero() {
			ts = now
		}

		e := &domain.Entry{
			ID:            id,
			Type:          r.Type,
			Amount:        r.Amount,
			Currency:      r.Currency,
			Note:          strings.TrimSpace(r.Note),
			AttachmentRef: r.AttachmentRef,
			Timestamp:     ts,
			CreatedAt:     now,
			CreatedBy:     actorID,
			LedgerID:      ledgerID,
			Status:        domain.EntryStatusApproved,
		}

		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}

		entries = append(entries, e)
	}

	err := uc.inTx(ctx, func(tx Transaction) error {
		for _, e := range entries {
			if err := uc.checkImportTarget(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := uc.entryRepo.Upsert(ctx, tx, e); err != nil {
				return err
			}
			if err := uc.audit(ctx, tx, e, actorID, domain.AuditActionCreated, domain.MarshalState(e.Snapshot())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesImported.Add(float64(len(entries)))
	}

	uc.log.Info().
		Str("ledger_id", ledgerID).
		Int("count", len(entries)).
		Msg("entries imported")

	publishChange(ctx, uc.notifier, uc.log, domain.ChangeEvent{
		Kind:     domain.ChangeKindEntry,
		LedgerID: ledgerID,
	})

	return len(entries), nil
}

// checkImportTarget locks the row an import record would replace, if any,
// and refuses to take over or approve someone else's entry.
func (uc *EntryUseCase) checkImportTarget(ctx context.Context, tx Transaction, e *domain.Entry) error {
	existing, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, e.ID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if existing.LedgerID != e.LedgerID || existing.CreatedBy != e.CreatedBy {
		return fmt.Errorf("%w: entry %s belongs to another author or ledger", domain.ErrNotAuthorized, e.ID)
	}
	if existing.Status != domain.EntryStatusApproved {
		return fmt.Errorf("%w: entry %s is %s and must be approved by the other party", domain.ErrInvalidTransition, e.ID, existing.Status)
	}
	return nil
}

// ListEntries returns a ledger's active entries in the viewer's
// perspective, newest first.
func (uc *EntryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]domain.Entry, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, input.LedgerID, input.ViewerID); err != nil {
		return nil, err
	}

	entries, err := uc.entryRepo.ListActive(ctx, input.LedgerID)
	if err != nil {
		return nil, err
	}

	entries = domain.ActiveEntries(entries)

	if input.From != nil || input.To != nil {
		from, to := time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		if input.From != nil {
			from = *input.From
		}
		if input.To != nil {
			to = *input.To
		}
		entries = domain.FilterByDateRange(entries, from, to)
	}

	return sortNewestFirst(domain.ResolveAll(entries, input.ViewerID)), nil
}

// ListDeletedEntries returns a ledger's soft-deleted entries in the
// viewer's perspective, newest first.
func (uc *EntryUseCase) ListDeletedEntries(ctx context.Context, viewerID, ledgerID string) ([]domain.Entry, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, ledgerID, viewerID); err != nil {
		return nil, err
	}

	entries, err := uc.entryRepo.ListDeleted(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	return sortNewestFirst(domain.ResolveAll(entries, viewerID)), nil
}

// History returns a page of a ledger's audit log, newest first.
func (uc *EntryUseCase) History(ctx context.Context, viewerID, ledgerID string, limit, offset int) ([]*domain.AuditLog, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, ledgerID, viewerID); err != nil {
		return nil, err
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	return uc.auditRepo.List(ctx, domain.AuditFilter{
		LedgerID: ledgerID,
		Limit:    limit,
		Offset:   offset,
	})
}

// inTx runs fn in a transaction with a bounded timeout, retrying the whole
// transaction on transient storage errors.
func (uc *EntryUseCase) inTx(ctx context.Context, fn func(tx Transaction) error) error {
	run := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer tx.Rollback(txCtx)

		if err := fn(tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	if uc.retrier == nil {
		return run()
	}

	return uc.retrier.Retry(ctx, run)
}

func (uc *EntryUseCase) audit(ctx context.Context, tx Transaction, entry *domain.Entry, actorID string, action domain.AuditAction, changes domain.JSON) error {
	err := uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:        uc.idGen.Generate(),
		EntryID:   entry.ID,
		LedgerID:  entry.LedgerID,
		Action:    action,
		ActorID:   actorID,
		Changes:   changes,
		CreatedAt: time.Now().UTC(),
	})

	if uc.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		uc.metrics.AuditLogsCreated.WithLabelValues(string(action), status).Inc()
	}

	return err
}

func (uc *EntryUseCase) published(ctx context.Context, entry *domain.Entry) {
	publishChange(ctx, uc.notifier, uc.log, domain.ChangeEvent{
		Kind:     domain.ChangeKindEntry,
		LedgerID: entry.LedgerID,
		EntryID:  entry.ID,
	})
}

func (uc *EntryUseCase) countOperation(op string) {
	if uc.metrics != nil {
		uc.metrics.EntryOperations.WithLabelValues(op).Inc()
	}
}

func (uc *EntryUseCase) countTransition(action domain.LifecycleAction, outcome string) {
	if uc.metrics != nil {
		uc.metrics.EntryTransitions.WithLabelValues(string(action), outcome).Inc()
	}
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return "denied"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid"
	default:
		return "error"
	}
}

func sortNewestFirst(entries []domain.Entry) []domain.Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries
}
