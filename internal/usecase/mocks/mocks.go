package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
	ledgers map[string][]string // user ID -> ledger IDs, for ListAllActive

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	UpsertFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error)
	ListActiveFunc       func(ctx context.Context, ledgerID string) ([]domain.Entry, error)
	ListAllActiveFunc    func(ctx context.Context, userID string) ([]domain.Entry, error)
	ListDeletedFunc      func(ctx context.Context, ledgerID string) ([]domain.Entry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
		ledgers: make(map[string][]string),
	}
}

// Seed stores entries directly.
func (m *MockEntryRepository) Seed(entries ...domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
	}
}

// AttachUser makes ListAllActive return entries of ledgerIDs for userID.
func (m *MockEntryRepository) AttachUser(userID string, ledgerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[userID] = append(m.ledgers[userID], ledgerIDs...)
}

// Stored returns a copy of the stored entry.
func (m *MockEntryRepository) Stored(id string) (domain.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.Entry{}, false
	}
	return *e, true
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; ok {
		return fmt.Errorf("duplicate entry %s", entry.ID)
	}
	e := *entry
	m.entries[entry.ID] = &e
	return nil
}

func (m *MockEntryRepository) Upsert(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[entry.ID]; ok && (old.LedgerID != entry.LedgerID || old.CreatedBy != entry.CreatedBy) {
		return domain.ErrNotAuthorized
	}
	e := *entry
	m.entries[entry.ID] = &e
	return nil
}

func (m *MockEntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	e := *entry
	m.entries[entry.ID] = &e
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		out := *e
		return &out, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockEntryRepository) ListActive(ctx context.Context, ledgerID string) ([]domain.Entry, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, ledgerID)
	}
	return m.list(func(e *domain.Entry) bool { return e.LedgerID == ledgerID && !e.IsDeleted() }), nil
}

func (m *MockEntryRepository) ListAllActive(ctx context.Context, userID string) ([]domain.Entry, error) {
	if m.ListAllActiveFunc != nil {
		return m.ListAllActiveFunc(ctx, userID)
	}
	m.mu.RLock()
	member := make(map[string]bool)
	for _, id := range m.ledgers[userID] {
		member[id] = true
	}
	m.mu.RUnlock()
	return m.list(func(e *domain.Entry) bool { return member[e.LedgerID] && !e.IsDeleted() }), nil
}

func (m *MockEntryRepository) ListDeleted(ctx context.Context, ledgerID string) ([]domain.Entry, error) {
	if m.ListDeletedFunc != nil {
		return m.ListDeletedFunc(ctx, ledgerID)
	}
	return m.list(func(e *domain.Entry) bool { return e.LedgerID == ledgerID && e.IsDeleted() }), nil
}

func (m *MockEntryRepository) list(keep func(*domain.Entry) bool) []domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Entry
	for _, e := range m.entries {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger

	CreateFunc                   func(ctx context.Context, ledger *domain.Ledger) error
	GetByIDFunc                  func(ctx context.Context, id string) (*domain.Ledger, error)
	GetByInviteCodeForUpdateFunc func(ctx context.Context, tx usecase.Transaction, code string) (*domain.Ledger, error)
	SetPartnerFunc               func(ctx context.Context, tx usecase.Transaction, id, userID string) error
	ListByUserFunc               func(ctx context.Context, userID string) ([]domain.Ledger, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		ledgers: make(map[string]*domain.Ledger),
	}
}

// Seed stores ledgers directly.
func (m *MockLedgerRepository) Seed(ledgers ...domain.Ledger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range ledgers {
		l := ledgers[i]
		m.ledgers[l.ID] = &l
	}
}

func (m *MockLedgerRepository) Create(ctx context.Context, ledger *domain.Ledger) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ledger)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := *ledger
	m.ledgers[ledger.ID] = &l
	return nil
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id string) (*domain.Ledger, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.ledgers[id]; ok {
		out := *l
		return &out, nil
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) GetByInviteCodeForUpdate(ctx context.Context, tx usecase.Transaction, code string) (*domain.Ledger, error) {
	if m.GetByInviteCodeForUpdateFunc != nil {
		return m.GetByInviteCodeForUpdateFunc(ctx, tx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.ledgers {
		if l.InviteCode == code {
			out := *l
			return &out, nil
		}
	}
	return nil, domain.ErrInvalidInviteCode
}

func (m *MockLedgerRepository) SetPartner(ctx context.Context, tx usecase.Transaction, id, userID string) error {
	if m.SetPartnerFunc != nil {
		return m.SetPartnerFunc(ctx, tx, id, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return domain.ErrLedgerNotFound
	}
	l.User2ID = userID
	return nil
}

func (m *MockLedgerRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ledger, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return m.list(func(l *domain.Ledger) bool { return l.IsMember(userID) && l.DeletedAt == nil }), nil
}

func (m *MockLedgerRepository) ListDeletedByUser(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return m.list(func(l *domain.Ledger) bool { return l.IsMember(userID) && l.DeletedAt != nil }), nil
}

func (m *MockLedgerRepository) SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.ledgers[id]
	if !ok {
		return domain.ErrLedgerNotFound
	}
	l.DeletedAt = deletedAt
	return nil
}

func (m *MockLedgerRepository) list(keep func(*domain.Ledger) bool) []domain.Ledger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Ledger
	for _, l := range m.ledgers {
		if keep(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockSettingsRepository is a mock implementation of SettingsRepository.
type MockSettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]domain.LedgerSettings

	GetFunc    func(ctx context.Context, userID, ledgerID string) (*domain.LedgerSettings, error)
	UpsertFunc func(ctx context.Context, settings *domain.LedgerSettings) error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		settings: make(map[string]domain.LedgerSettings),
	}
}

func settingsKey(userID, ledgerID string) string {
	return userID + "/" + ledgerID
}

func (m *MockSettingsRepository) Get(ctx context.Context, userID, ledgerID string) (*domain.LedgerSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID, ledgerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[settingsKey(userID, ledgerID)]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, settings *domain.LedgerSettings) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, settings)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settingsKey(settings.UserID, settings.LedgerID)] = *settings
	return nil
}

func (m *MockSettingsRepository) ListByUser(ctx context.Context, userID string) ([]domain.LedgerSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.LedgerSettings
	for _, s := range m.settings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

// List returns matching logs newest first.
func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if filter.LedgerID != "" && l.LedgerID != filter.LedgerID {
			continue
		}
		if filter.EntryID != "" && l.EntryID != filter.EntryID {
			continue
		}
		out = append(out, l)
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Logs returns every recorded log in insertion order.
func (m *MockAuditRepository) Logs() []*domain.AuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.AuditLog(nil), m.logs...)
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// InMemoryNotifier is a synchronous ChangeNotifier for tests.
type InMemoryNotifier struct {
	mu     sync.Mutex
	next   int
	subs   map[int]func(domain.ChangeEvent)
	events []domain.ChangeEvent
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{subs: make(map[int]func(domain.ChangeEvent))}
}

func (n *InMemoryNotifier) Publish(ctx context.Context, event domain.ChangeEvent) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	subs := make([]func(domain.ChangeEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	return nil
}

func (n *InMemoryNotifier) Subscribe(ctx context.Context, onChange func(domain.ChangeEvent)) (func() error, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = onChange
	return func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
		return nil
	}, nil
}

// Events returns every published event.
func (n *InMemoryNotifier) Events() []domain.ChangeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ChangeEvent(nil), n.events...)
}

// Subscribers returns the number of active subscriptions.
func (n *InMemoryNotifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
