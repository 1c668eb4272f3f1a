package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/infrastructure/metrics"
)

// Rate lookup sources reported in metrics.
const (
	RateSourceCache    = "cache"
	RateSourceFetch    = "fetch"
	RateSourceFallback = "fallback"
)

// ExchangeRateProvider serves rate snapshots from a cache, refreshing them
// from a RateSource once they are older than the TTL. It never returns an
// error: when the source fails it serves the built-in fallback snapshot,
// which is always stale so the next call tries the source again.
type ExchangeRateProvider struct {
	cache   Cache
	source  RateSource
	metrics *metrics.Metrics
	now     func() time.Time
	log     zerolog.Logger
	key     string
	ttl     time.Duration
}

// NewExchangeRateProvider creates a provider. cache may be nil.
func NewExchangeRateProvider(
	cache Cache,
	source RateSource,
	ttl time.Duration,
	metrics *metrics.Metrics,
	log zerolog.Logger,
) *ExchangeRateProvider {
	if ttl <= 0 {
		ttl = DefaultRatesTTL
	}

	return &ExchangeRateProvider{
		cache:   cache,
		source:  source,
		ttl:     ttl,
		metrics: metrics,
		log:     log,
		key:     RatesCacheKey,
		now:     time.Now,
	}
}

// WithClock replaces the provider's time source.
func (p *ExchangeRateProvider) WithClock(now func() time.Time) *ExchangeRateProvider {
	p.now = now
	return p
}

// GetRates returns the current rate snapshot.
func (p *ExchangeRateProvider) GetRates(ctx context.Context) domain.RateSnapshot {
	now := p.now()

	if snap, ok := p.cached(ctx); ok && snap.IsFresh(now, p.ttl) {
		p.served(RateSourceCache, now, snap)
		return snap
	}

	start := time.Now()
	rates, err := p.source.Fetch(ctx)
	if p.metrics != nil {
		p.metrics.RateFetchLatency.Observe(time.Since(start).Seconds())
	}

	if err == nil && len(rates) == 0 {
		err = errors.New("rate source returned no rates")
	}

	if err != nil {
		if p.metrics != nil {
			p.metrics.RateFetchErrors.Inc()
		}
		p.log.Warn().Err(err).Msg("exchange rate fetch failed, using fallback rates")

		snap := domain.FallbackSnapshot()
		p.served(RateSourceFallback, now, snap)
		return snap
	}

	base := p.source.Base()
	snapRates := make(map[domain.Currency]float64, len(rates)+1)
	for c, r := range rates {
		snapRates[c] = r
	}
	if _, ok := snapRates[base]; !ok {
		snapRates[base] = 1
	}

	snap := domain.RateSnapshot{
		Base:    base,
		Rates:   snapRates,
		TakenAt: now.UTC(),
	}

	p.store(ctx, snap)
	p.served(RateSourceFetch, now, snap)

	return snap
}

func (p *ExchangeRateProvider) cached(ctx context.Context) (domain.RateSnapshot, bool) {
	if p.cache == nil {
		return domain.RateSnapshot{}, false
	}

	data, err := p.cache.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			p.log.Warn().Err(err).Msg("exchange rate cache read failed")
		}
		return domain.RateSnapshot{}, false
	}

	var snap domain.RateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		p.log.Warn().Err(err).Msg("discarding unreadable cached exchange rates")
		return domain.RateSnapshot{}, false
	}

	return snap, true
}

// store overwrites the cached snapshot. Concurrent refreshes may both write;
// the last one wins.
func (p *ExchangeRateProvider) store(ctx context.Context, snap domain.RateSnapshot) {
	if p.cache == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to encode exchange rates")
		return
	}

	if err := p.cache.Set(ctx, p.key, data, 0); err != nil {
		p.log.Warn().Err(err).Msg("exchange rate cache write failed")
	}
}

func (p *ExchangeRateProvider) served(source string, now time.Time, snap domain.RateSnapshot) {
	if p.metrics == nil {
		return
	}

	p.metrics.RateLookups.WithLabelValues(source).Inc()
	if !snap.TakenAt.IsZero() {
		p.metrics.RateSnapshotAge.Set(now.Sub(snap.TakenAt).Seconds())
	}
}
