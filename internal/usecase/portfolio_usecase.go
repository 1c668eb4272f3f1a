package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// PortfolioUseCase loads a viewer's ledgers and entries and aggregates them
// into per-ledger and pooled balances.
type PortfolioUseCase struct {
	ledgerRepo   LedgerRepository
	settingsRepo SettingsRepository
	entryRepo    EntryRepository
	rates        RateProvider
	notifier     ChangeNotifier
	metrics      *metrics.Metrics
	log          zerolog.Logger
	policy       domain.StatusPolicy
}

// NewPortfolioUseCase creates a new PortfolioUseCase.
func NewPortfolioUseCase(
	ledgerRepo LedgerRepository,
	settingsRepo SettingsRepository,
	entryRepo EntryRepository,
	rates RateProvider,
	notifier ChangeNotifier,
	policy domain.StatusPolicy,
	metrics *metrics.Metrics,
	log zerolog.Logger,
) *PortfolioUseCase {
	if policy == "" {
		policy = domain.PolicyApprovedOnly
	}

	return &PortfolioUseCase{
		ledgerRepo:   ledgerRepo,
		settingsRepo: settingsRepo,
		entryRepo:    entryRepo,
		rates:        rates,
		notifier:     notifier,
		policy:       policy,
		metrics:      metrics,
		log:          log,
	}
}

// GetPortfolioInput selects whose portfolio to compute. An empty
// ReportingCurrency skips conversion.
type GetPortfolioInput struct {
	ViewerID          string
	ReportingCurrency domain.Currency
}

// GetPortfolio computes the viewer's portfolio from current storage state.
func (uc *PortfolioUseCase) GetPortfolio(ctx context.Context, input GetPortfolioInput) (*domain.Portfolio, error) {
	start := time.Now()

	if input.ViewerID == "" {
		return nil, domain.ErrUnauthorized
	}

	if input.ReportingCurrency != "" {
		if err := domain.ValidateCurrency(input.ReportingCurrency); err != nil {
			return nil, err
		}
	}

	ledgers, err := uc.ledgerRepo.ListByUser(ctx, input.ViewerID)
	if err != nil {
		return nil, err
	}

	settings, err := uc.settingsRepo.ListByUser(ctx, input.ViewerID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(settings))
	for _, s := range settings {
		names[s.LedgerID] = s.DisplayName()
	}

	entries, err := uc.entryRepo.ListAllActive(ctx, input.ViewerID)
	if err != nil {
		return nil, err
	}

	var snap *domain.RateSnapshot
	if input.ReportingCurrency != "" && uc.rates != nil {
		s := uc.rates.GetRates(ctx)
		snap = &s
	}

	p := domain.AggregatePortfolio(domain.PortfolioInput{
		ViewerID:          input.ViewerID,
		Ledgers:           ledgers,
		Names:             names,
		Entries:           entries,
		Policy:            uc.policy,
		ReportingCurrency: input.ReportingCurrency,
		Rates:             snap,
	})

	if uc.metrics != nil {
		uc.metrics.PortfolioComputations.Inc()
		uc.metrics.PortfolioDuration.Observe(time.Since(start).Seconds())
	}

	return &p, nil
}

// GetLedgerBalances returns one ledger's net balances in the viewer's
// perspective.
func (uc *PortfolioUseCase) GetLedgerBalances(ctx context.Context, viewerID, ledgerID string) ([]domain.NetBalance, error) {
	if _, err := requireMember(ctx, uc.ledgerRepo, ledgerID, viewerID); err != nil {
		return nil, err
	}

	entries, err := uc.entryRepo.ListActive(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	counted := domain.CountableEntries(entries, uc.policy)

	return domain.CalculateBalances(domain.ResolveAll(counted, viewerID)), nil
}

// Watch sends the viewer's portfolio to onUpdate once, then again after
// every change notification, until ctx is done. Each update is a full
// recompute. Notifications arriving during a recompute collapse into one
// follow-up recompute.
func (uc *PortfolioUseCase) Watch(ctx context.Context, input GetPortfolioInput, onUpdate func(*domain.Portfolio)) error {
	changed := make(chan struct{}, 1)

	if uc.notifier != nil {
		cancel, err := uc.notifier.Subscribe(ctx, func(domain.ChangeEvent) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := cancel(); err != nil {
				uc.log.Debug().Err(err).Msg("portfolio unsubscribe failed")
			}
		}()
	}

	p, err := uc.GetPortfolio(ctx, input)
	if err != nil {
		return err
	}
	onUpdate(p)

	if uc.metrics != nil {
		uc.metrics.PortfolioWatchers.Inc()
		defer uc.metrics.PortfolioWatchers.Dec()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			p, err := uc.GetPortfolio(ctx, input)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				uc.log.Warn().Err(err).Str("viewer_id", input.ViewerID).Msg("portfolio recompute failed")
				continue
			}
			onUpdate(p)
		}
	}
}
