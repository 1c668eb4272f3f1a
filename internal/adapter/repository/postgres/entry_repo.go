package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

const entryColumns = `id, ledger_id, type, amount::text, currency, note, attachment_ref,
	occurred_at, created_by, status, created_at, updated_at, deleted_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db querier
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepository(pool)
}

func newEntryRepository(db querier) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO entries (
			id, ledger_id, type, amount, currency, note, attachment_ref,
			occurred_at, created_by, status, created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entryArgs(entry)...,
	)
	return err
}

// Upsert inserts an entry or overwrites the one with the same id, provided
// the stored row has the same ledger and author.
func (r *EntryRepository) Upsert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	tag, err := inTx(tx).Exec(ctx, `
		INSERT INTO entries (
			id, ledger_id, type, amount, currency, note, attachment_ref,
			occurred_at, created_by, status, created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			ledger_id = EXCLUDED.ledger_id,
			type = EXCLUDED.type,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			note = EXCLUDED.note,
			attachment_ref = EXCLUDED.attachment_ref,
			occurred_at = EXCLUDED.occurred_at,
			created_by = EXCLUDED.created_by,
			status = EXCLUDED.status,
			updated_at = now(),
			deleted_at = NULL
		WHERE entries.ledger_id = EXCLUDED.ledger_id
		  AND entries.created_by = EXCLUDED.created_by`,
		entryArgs(entry)...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotAuthorized
	}
	return nil
}

// Update overwrites the mutable fields of an entry.
func (r *EntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	tag, err := inTx(tx).Exec(ctx, `
		UPDATE entries SET
			type = $2, amount = $3::numeric, currency = $4, note = $5, attachment_ref = $6,
			occurred_at = $7, status = $8, updated_at = $9, deleted_at = $10
		WHERE id = $1`,
		entry.ID,
		string(entry.Type),
		entry.Amount.String(),
		string(entry.Currency),
		entry.Note,
		entry.AttachmentRef,
		entry.Timestamp,
		string(entry.Status),
		entry.UpdatedAt,
		entry.DeletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// GetByID retrieves an entry, deleted or not.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	return scanEntry(row)
}

// GetByIDForUpdate retrieves an entry and locks its row.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	row := inTx(tx).QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, id)
	return scanEntry(row)
}

// ListActive returns a ledger's non-deleted entries, newest first.
func (r *EntryRepository) ListActive(ctx context.Context, ledgerID string) ([]domain.Entry, error) {
	return r.list(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE ledger_id = $1 AND deleted_at IS NULL
		ORDER BY occurred_at DESC, id DESC`, ledgerID)
}

// ListAllActive returns the non-deleted entries of every active ledger the
// user belongs to.
func (r *EntryRepository) ListAllActive(ctx context.Context, userID string) ([]domain.Entry, error) {
	return r.list(ctx, `
		SELECT `+prefixed("e", entryColumns)+`
		FROM entries e
		JOIN ledgers l ON l.id = e.ledger_id
		WHERE (l.user1_id = $1 OR l.user2_id = $1)
		  AND l.deleted_at IS NULL
		  AND e.deleted_at IS NULL
		ORDER BY e.occurred_at DESC, e.id DESC`, userID)
}

// ListDeleted returns a ledger's soft-deleted entries.
func (r *EntryRepository) ListDeleted(ctx context.Context, ledgerID string) ([]domain.Entry, error) {
	return r.list(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE ledger_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC`, ledgerID)
}

func (r *EntryRepository) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}

	return entries, rows.Err()
}

func entryArgs(e *domain.Entry) []any {
	return []any{
		e.ID,
		e.LedgerID,
		string(e.Type),
		e.Amount.String(),
		string(e.Currency),
		e.Note,
		e.AttachmentRef,
		e.Timestamp,
		e.CreatedBy,
		string(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
		e.DeletedAt,
	}
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e                  domain.Entry
		typ, cur, status   string
		amount             string
		updated, deletedAt *time.Time
	)

	err := row.Scan(
		&e.ID,
		&e.LedgerID,
		&typ,
		&amount,
		&cur,
		&e.Note,
		&e.AttachmentRef,
		&e.Timestamp,
		&e.CreatedBy,
		&status,
		&e.CreatedAt,
		&updated,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("entry %s: invalid amount %q: %w", e.ID, amount, err)
	}

	e.Type = domain.EntryType(typ)
	e.Currency = domain.Currency(cur)
	e.Status = domain.EntryStatus(status)
	e.UpdatedAt = updated
	e.DeletedAt = deletedAt

	return &e, nil
}
