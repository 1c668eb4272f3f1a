package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lendlog/internal/domain"
)

// SettingsRepository implements usecase.SettingsRepository.
type SettingsRepository struct {
	db querier
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return newSettingsRepository(pool)
}

func newSettingsRepository(db querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the user's settings for a ledger, or nil if none are stored.
func (r *SettingsRepository) Get(ctx context.Context, userID, ledgerID string) (*domain.LedgerSettings, error) {
	row := r.db.QueryRow(ctx, `
		SELECT user_id, ledger_id, friend_name, preferred_currency, updated_at
		FROM ledger_settings
		WHERE user_id = $1 AND ledger_id = $2`, userID, ledgerID)

	s, err := scanSettings(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Upsert stores the user's settings for a ledger.
func (r *SettingsRepository) Upsert(ctx context.Context, s *domain.LedgerSettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledger_settings (user_id, ledger_id, friend_name, preferred_currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ledger_id) DO UPDATE SET
			friend_name = EXCLUDED.friend_name,
			preferred_currency = EXCLUDED.preferred_currency,
			updated_at = EXCLUDED.updated_at`,
		s.UserID,
		s.LedgerID,
		s.FriendName,
		string(s.PreferredCurrency),
		s.UpdatedAt,
	)
	return err
}

// ListByUser returns every stored setting of a user.
func (r *SettingsRepository) ListByUser(ctx context.Context, userID string) ([]domain.LedgerSettings, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, ledger_id, friend_name, preferred_currency, updated_at
		FROM ledger_settings
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}

	return out, rows.Err()
}

func scanSettings(row pgx.Row) (*domain.LedgerSettings, error) {
	var (
		s   domain.LedgerSettings
		cur string
	)
	if err := row.Scan(&s.UserID, &s.LedgerID, &s.FriendName, &cur, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.PreferredCurrency = domain.Currency(cur)
	return &s, nil
}
