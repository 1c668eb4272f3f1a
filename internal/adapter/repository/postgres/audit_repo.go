package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return newAuditRepository(pool)
}

func newAuditRepository(db querier) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateTx inserts an audit log entry inside the caller's transaction
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var changes []byte
	if log.Changes != nil {
		var err error
		changes, err = json.Marshal(log.Changes)
		if err != nil {
			return err
		}
	}

	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO entry_audit_log (id, entry_id, ledger_id, action, actor_id, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID,
		log.EntryID,
		log.LedgerID,
		string(log.Action),
		log.ActorID,
		changes,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit logs with filtering, newest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var (
		where []string
		args  []any
	)

	if filter.LedgerID != "" {
		args = append(args, filter.LedgerID)
		where = append(where, fmt.Sprintf("ledger_id = $%d", len(args)))
	}

	if filter.EntryID != "" {
		args = append(args, filter.EntryID)
		where = append(where, fmt.Sprintf("entry_id = $%d", len(args)))
	}

	query := `SELECT id, entry_id, ledger_id, action, actor_id, changes, created_at FROM entry_audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit, offset := domain.ValidatePagination(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log     domain.AuditLog
			action  string
			changes []byte
		)

		if err := rows.Scan(&log.ID, &log.EntryID, &log.LedgerID, &action, &log.ActorID, &changes, &log.CreatedAt); err != nil {
			return nil, err
		}

		log.Action = domain.AuditAction(action)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &log.Changes); err != nil {
				return nil, err
			}
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
