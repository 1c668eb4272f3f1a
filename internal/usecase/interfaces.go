package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/lendlog/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// EntryRepository defines data access for entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	Upsert(ctx context.Context, tx Transaction, entry *domain.Entry) error
	Update(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Entry, error)
	// ListActive returns the non-deleted entries of one ledger.
	ListActive(ctx context.Context, ledgerID string) ([]domain.Entry, error)
	// ListAllActive returns the non-deleted entries of every ledger userID belongs to.
	ListAllActive(ctx context.Context, userID string) ([]domain.Entry, error)
	ListDeleted(ctx context.Context, ledgerID string) ([]domain.Entry, error)
}

// LedgerRepository defines data access for ledgers.
type LedgerRepository interface {
	Create(ctx context.Context, ledger *domain.Ledger) error
	GetByID(ctx context.Context, id string) (*domain.Ledger, error)
	GetByInviteCodeForUpdate(ctx context.Context, tx Transaction, code string) (*domain.Ledger, error)
	SetPartner(ctx context.Context, tx Transaction, id, userID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Ledger, error)
	ListDeletedByUser(ctx context.Context, userID string) ([]domain.Ledger, error)
	SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error
}

// SettingsRepository defines data access for per-user ledger settings.
type SettingsRepository interface {
	// Get returns nil settings and no error when the user has none.
	Get(ctx context.Context, userID, ledgerID string) (*domain.LedgerSettings, error)
	Upsert(ctx context.Context, settings *domain.LedgerSettings) error
	ListByUser(ctx context.Context, userID string) ([]domain.LedgerSettings, error)
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RateSource fetches current conversion rates relative to a fixed base.
type RateSource interface {
	Base() domain.Currency
	Fetch(ctx context.Context) (map[domain.Currency]float64, error)
}

// RateProvider hands out rate snapshots. It never fails.
type RateProvider interface {
	GetRates(ctx context.Context) domain.RateSnapshot
}

// ChangeNotifier broadcasts storage changes to interested readers.
type ChangeNotifier interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
	// Subscribe registers onChange for every published event until the
	// returned cancel function is called or ctx is done.
	Subscribe(ctx context.Context, onChange func(domain.ChangeEvent)) (cancel func() error, err error)
}
