package usecase_test

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
	"github.com/iho/lendlog/internal/usecase/mocks"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
	carol = "user-carol"

	sharedLedger = "ledger-ab"
	carolLedger  = "ledger-ac"
)

var baseTime = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func storedEntry(id, author string, typ domain.EntryType, amt string, cur domain.Currency, status domain.EntryStatus, ts time.Time) domain.Entry {
	return domain.Entry{
		ID:        id,
		Type:      typ,
		Amount:    amount(amt),
		Currency:  cur,
		Timestamp: ts,
		CreatedAt: ts,
		CreatedBy: author,
		LedgerID:  sharedLedger,
		Status:    status,
	}
}

type fixture struct {
	entries  *mocks.MockEntryRepository
	ledgers  *mocks.MockLedgerRepository
	settings *mocks.MockSettingsRepository
	audit    *mocks.MockAuditRepository
	txMgr    *mocks.MockTransactionManager
	idGen    *mocks.MockIDGenerator
	notifier *mocks.InMemoryNotifier
}

func newFixture() *fixture {
	f := &fixture{
		entries:  mocks.NewMockEntryRepository(),
		ledgers:  mocks.NewMockLedgerRepository(),
		settings: mocks.NewMockSettingsRepository(),
		audit:    mocks.NewMockAuditRepository(),
		txMgr:    mocks.NewMockTransactionManager(),
		idGen:    mocks.NewMockIDGenerator(),
		notifier: mocks.NewInMemoryNotifier(),
	}

	f.ledgers.Seed(
		domain.Ledger{ID: sharedLedger, User1ID: alice, User2ID: bob, InviteCode: "abcd1234", CreatedAt: baseTime},
		domain.Ledger{ID: carolLedger, User1ID: alice, User2ID: carol, InviteCode: "ac000001", CreatedAt: baseTime},
	)
	f.entries.AttachUser(alice, sharedLedger, carolLedger)
	f.entries.AttachUser(bob, sharedLedger)
	f.entries.AttachUser(carol, carolLedger)

	return f
}

func (f *fixture) entryUseCase(retrier usecase.Retrier) *usecase.EntryUseCase {
	return usecase.NewEntryUseCase(f.txMgr, f.entries, f.ledgers, f.audit, f.idGen, retrier, f.notifier, nil, zerolog.Nop())
}

func (f *fixture) ledgerUseCase() *usecase.LedgerUseCase {
	return usecase.NewLedgerUseCase(f.txMgr, f.ledgers, f.settings, f.idGen, f.notifier, nil, zerolog.Nop())
}

func (f *fixture) portfolioUseCase(rates usecase.RateProvider, policy domain.StatusPolicy) *usecase.PortfolioUseCase {
	return usecase.NewPortfolioUseCase(f.ledgers, f.settings, f.entries, rates, f.notifier, policy, nil, zerolog.Nop())
}
