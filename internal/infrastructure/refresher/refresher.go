package refresher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
)

// RateRefresher keeps the rate cache warm so request paths rarely pay for
// a fetch, and announces each new snapshot to change subscribers.
type RateRefresher struct {
	provider usecase.RateProvider
	notifier usecase.ChangeNotifier
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
	lastSeen time.Time
}

// Config for RateRefresher.
type Config struct {
	Provider usecase.RateProvider
	Notifier usecase.ChangeNotifier // optional
	Logger   zerolog.Logger
	Interval time.Duration // polling interval
}

// New creates a new RateRefresher.
func New(cfg Config) *RateRefresher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	return &RateRefresher{
		provider: cfg.Provider,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		interval: cfg.Interval,
		now:      time.Now,
	}
}

// Start refreshes once immediately and then on every tick.
// It runs until the context is cancelled.
func (r *RateRefresher) Start(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("rate refresher started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("rate refresher shutting down")
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh asks the provider for rates and publishes a change when the
// snapshot is new. Fallback snapshots have no TakenAt and are not announced.
func (r *RateRefresher) refresh(ctx context.Context) {
	snap := r.provider.GetRates(ctx)
	if snap.TakenAt.IsZero() {
		r.logger.Warn().Msg("rate refresh served fallback rates")
		return
	}
	if snap.TakenAt.Equal(r.lastSeen) {
		return
	}
	first := r.lastSeen.IsZero()
	r.lastSeen = snap.TakenAt

	r.logger.Info().
		Str("base", string(snap.Base)).
		Int("currencies", len(snap.Rates)).
		Time("taken_at", snap.TakenAt).
		Msg("rate snapshot refreshed")

	// Portfolios computed before start already used whatever was cached.
	if first || r.notifier == nil {
		return
	}

	event := domain.ChangeEvent{Kind: domain.ChangeKindRates, OccurredAt: r.now().UTC()}
	if err := r.notifier.Publish(ctx, event); err != nil {
		r.logger.Error().Err(err).Msg("failed to publish rate change")
	}
}
