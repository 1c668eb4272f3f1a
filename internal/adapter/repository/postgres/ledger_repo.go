package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

const ledgerColumns = `id, user1_id, user2_id, invite_code, created_at, deleted_at`

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create inserts a new ledger.
func (r *LedgerRepository) Create(ctx context.Context, ledger *domain.Ledger) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledgers (id, user1_id, user2_id, invite_code, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ledger.ID,
		ledger.User1ID,
		nullable(ledger.User2ID),
		ledger.InviteCode,
		ledger.CreatedAt,
	)
	return err
}

// GetByID retrieves a ledger, deleted or not.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.Ledger, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id = $1`, id)
	return scanLedger(row, domain.ErrLedgerNotFound)
}

// GetByInviteCodeForUpdate retrieves and locks the ledger with an invite code.
func (r *LedgerRepository) GetByInviteCodeForUpdate(ctx context.Context, tx usecase.Transaction, code string) (*domain.Ledger, error) {
	row := inTx(tx).QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE invite_code = $1 FOR UPDATE`, code)
	return scanLedger(row, domain.ErrInvalidInviteCode)
}

// SetPartner records the second party. It only succeeds while the seat is free.
func (r *LedgerRepository) SetPartner(ctx context.Context, tx usecase.Transaction, id, userID string) error {
	tag, err := inTx(tx).Exec(ctx, `
		UPDATE ledgers SET user2_id = $2
		WHERE id = $1 AND user2_id IS NULL`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerFull
	}
	return nil
}

// ListByUser returns the active ledgers the user belongs to, oldest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return r.list(ctx, `
		SELECT `+ledgerColumns+` FROM ledgers
		WHERE (user1_id = $1 OR user2_id = $1) AND deleted_at IS NULL
		ORDER BY created_at, id`, userID)
}

// ListDeletedByUser returns the soft-deleted ledgers the user belongs to.
func (r *LedgerRepository) ListDeletedByUser(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return r.list(ctx, `
		SELECT `+ledgerColumns+` FROM ledgers
		WHERE (user1_id = $1 OR user2_id = $1) AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC`, userID)
}

// SetDeletedAt sets or clears a ledger's tombstone.
func (r *LedgerRepository) SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE ledgers SET deleted_at = $2 WHERE id = $1`, id, deletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLedgerNotFound
	}
	return nil
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ledger, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []domain.Ledger
	for rows.Next() {
		l, err := scanLedger(rows, domain.ErrLedgerNotFound)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, *l)
	}

	return ledgers, rows.Err()
}

func scanLedger(row pgx.Row, notFound error) (*domain.Ledger, error) {
	var (
		l       domain.Ledger
		user2   *string
		deleted *time.Time
	)

	if err := row.Scan(&l.ID, &l.User1ID, &user2, &l.InviteCode, &l.CreatedAt, &deleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	if user2 != nil {
		l.User2ID = *user2
	}
	l.DeletedAt = deleted

	return &l, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
