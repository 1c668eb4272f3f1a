package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

const inviteCodeLength = 8

// LedgerUseCase handles ledger membership and per-user settings.
type LedgerUseCase struct {
	txManager    TransactionManager
	ledgerRepo   LedgerRepository
	settingsRepo SettingsRepository
	idGen        IDGenerator
	notifier     ChangeNotifier
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	ledgerRepo LedgerRepository,
	settingsRepo SettingsRepository,
	idGen IDGenerator,
	notifier ChangeNotifier,
	metrics *metrics.Metrics,
	log zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:    txManager,
		ledgerRepo:   ledgerRepo,
		settingsRepo: settingsRepo,
		idGen:        idGen,
		notifier:     notifier,
		metrics:      metrics,
		log:          log,
	}
}

// LedgerView is a ledger as one of its members sees it.
type LedgerView struct {
	Settings  domain.LedgerSettings
	PartnerID string
	Ledger    domain.Ledger
}

// UpdateSettingsInput carries optional settings changes.
type UpdateSettingsInput struct {
	FriendName        *string
	PreferredCurrency *domain.Currency
	UserID            string
	LedgerID          string
}

// CreateLedger opens a solo ledger owned by userID with a fresh invite code.
func (uc *LedgerUseCase) CreateLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	ledger := &domain.Ledger{
		ID:         uc.idGen.Generate(),
		User1ID:    userID,
		InviteCode: newInviteCode(),
		CreatedAt:  time.Now().UTC(),
	}

	if err := uc.ledgerRepo.Create(ctx, ledger); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LedgersCreated.Inc()
	}

	uc.log.Info().Str("ledger_id", ledger.ID).Str("user_id", userID).Msg("ledger created")

	return ledger, nil
}

// JoinLedger makes userID the second party of the ledger with the given
// invite code. Joining a ledger the user already belongs to is a no-op.
func (uc *LedgerUseCase) JoinLedger(ctx context.Context, userID, code string) (*domain.Ledger, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	code = normalizeInviteCode(code)
	if code == "" {
		return nil, domain.ErrInvalidInviteCode
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ledger, err := uc.ledgerRepo.GetByInviteCodeForUpdate(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	if ledger.DeletedAt != nil {
		return nil, domain.ErrInvalidInviteCode
	}

	if ledger.IsMember(userID) {
		return ledger, nil
	}

	if ledger.HasPartner() {
		return nil, domain.ErrLedgerFull
	}

	if err := uc.ledgerRepo.SetPartner(ctx, tx, ledger.ID, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ledger.User2ID = userID

	if uc.metrics != nil {
		uc.metrics.LedgersJoined.Inc()
	}

	publishChange(ctx, uc.notifier, uc.log, domain.ChangeEvent{
		Kind:     domain.ChangeKindLedger,
		LedgerID: ledger.ID,
	})

	return ledger, nil
}

// ListLedgers returns the active ledgers of userID with their settings.
func (uc *LedgerUseCase) ListLedgers(ctx context.Context, userID string) ([]LedgerView, error) {
	ledgers, err := uc.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := uc.settingsRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byLedger := make(map[string]domain.LedgerSettings, len(settings))
	for _, s := range settings {
		byLedger[s.LedgerID] = s
	}

	views := make([]LedgerView, 0, len(ledgers))
	for _, l := range ledgers {
		s, ok := byLedger[l.ID]
		if !ok {
			s = defaultSettings(userID, l.ID)
		}
		s.FriendName = s.DisplayName()

		views = append(views, LedgerView{
			Ledger:    l,
			Settings:  s,
			PartnerID: l.PartnerOf(userID),
		})
	}

	return views, nil
}

// ListDeletedLedgers returns the soft-deleted ledgers of userID.
func (uc *LedgerUseCase) ListDeletedLedgers(ctx context.Context, userID string) ([]domain.Ledger, error) {
	return uc.ledgerRepo.ListDeletedByUser(ctx, userID)
}

// GetSettings returns userID's settings for a ledger, defaulted when unset.
func (uc *LedgerUseCase) GetSettings(ctx context.Context, userID, ledgerID string) (domain.LedgerSettings, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, ledgerID, userID); err != nil {
		return domain.LedgerSettings{}, err
	}

	s, err := uc.settingsRepo.Get(ctx, userID, ledgerID)
	if err != nil {
		return domain.LedgerSettings{}, err
	}
	if s == nil {
		return defaultSettings(userID, ledgerID), nil
	}

	out := *s
	out.FriendName = out.DisplayName()

	return out, nil
}

// UpdateSettings applies the non-nil fields of input.
func (uc *LedgerUseCase) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*domain.LedgerSettings, error) {
	current, err := uc.GetSettings(ctx, input.UserID, input.LedgerID)
	if err != nil {
		return nil, err
	}

	if input.FriendName != nil {
		if err := domain.ValidateFriendName(*input.FriendName); err != nil {
			return nil, err
		}
		current.FriendName = strings.TrimSpace(*input.FriendName)
	}

	if input.PreferredCurrency != nil {
		if *input.PreferredCurrency != "" {
			if err := domain.ValidateCurrency(*input.PreferredCurrency); err != nil {
				return nil, err
			}
		}
		current.PreferredCurrency = *input.PreferredCurrency
	}

	current.UpdatedAt = time.Now().UTC()

	if err := uc.settingsRepo.Upsert(ctx, &current); err != nil {
		return nil, err
	}

	return &current, nil
}

// DeleteLedger soft-deletes a ledger. Its entries stay in storage.
func (uc *LedgerUseCase) DeleteLedger(ctx context.Context, userID, ledgerID string) error {
	return uc.setDeleted(ctx, userID, ledgerID, true)
}

// RestoreLedger clears a ledger's tombstone.
func (uc *LedgerUseCase) RestoreLedger(ctx context.Context, userID, ledgerID string) error {
	return uc.setDeleted(ctx, userID, ledgerID, false)
}

func (uc *LedgerUseCase) setDeleted(ctx context.Context, userID, ledgerID string, deleted bool) error {
	ledger, err := uc.ledgerRepo.GetByID(ctx, ledgerID)
	if err != nil {
		return err
	}

	if !ledger.IsMember(userID) {
		return domain.ErrNotLedgerMember
	}

	var deletedAt *time.Time
	if deleted {
		now := time.Now().UTC()
		deletedAt = &now
	}

	if err := uc.ledgerRepo.SetDeletedAt(ctx, ledgerID, deletedAt); err != nil {
		return err
	}

	publishChange(ctx, uc.notifier, uc.log, domain.ChangeEvent{
		Kind:     domain.ChangeKindLedger,
		LedgerID: ledgerID,
	})

	return nil
}

// requireMember loads an active ledger and checks userID belongs to it.
func requireMember(ctx context.Context, repo LedgerRepository, ledgerID, userID string) (*domain.Ledger, error) {
	if ledgerID == "" {
		return nil, domain.ErrLedgerNotFound
	}

	ledger, err := repo.GetByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	if ledger.DeletedAt != nil {
		return nil, domain.ErrLedgerNotFound
	}

	if !ledger.IsMember(userID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotLedgerMember, ledgerID)
	}

	return ledger, nil
}

// publishChange notifies subscribers after a committed write. Failures are
// logged and dropped.
func publishChange(ctx context.Context, notifier ChangeNotifier, log zerolog.Logger, event domain.ChangeEvent) {
	if notifier == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := notifier.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("kind", event.Kind).
			Str("ledger_id", event.LedgerID).
			Msg("failed to publish change notification")
	}
}

func defaultSettings(userID, ledgerID string) domain.LedgerSettings {
	return domain.LedgerSettings{
		UserID:     userID,
		LedgerID:   ledgerID,
		FriendName: domain.DefaultFriendName,
	}
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength]
}

func normalizeInviteCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
