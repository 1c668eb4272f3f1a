package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/lendlog/internal/domain"
	"github.com/iho/lendlog/internal/usecase"
	"github.com/iho/lendlog/internal/usecase/mocks"
)

func seedPortfolio(f *fixture) {
	withCarol := storedEntry("c1", carol, domain.EntryTypeBorrowed, "10", domain.CurrencyUSD, domain.EntryStatusApproved, baseTime)
	withCarol.LedgerID = carolLedger

	orphan := storedEntry("x1", alice, domain.EntryTypeLent, "99", domain.CurrencyUSD, domain.EntryStatusApproved, baseTime)
	orphan.LedgerID = ""

	f.entries.Seed(
		storedEntry("s1", alice, domain.EntryTypeLent, "30", domain.CurrencyEUR, domain.EntryStatusApproved, baseTime),
		storedEntry("s2", bob, domain.EntryTypeBorrowed, "4", domain.CurrencyGBP, domain.EntryStatusPending, baseTime),
		withCarol,
		orphan,
	)
	_ = f.settings.Upsert(context.Background(), &domain.LedgerSettings{UserID: alice, LedgerID: sharedLedger, FriendName: "Bob"})
}

func ratesProvider(t *testing.T, times int) *mocks.MockRateProvider {
	t.Helper()
	ctrl := gomock.NewController(t)
	p := mocks.NewMockRateProvider(ctrl)
	p.EXPECT().GetRates(gomock.Any()).Return(domain.RateSnapshot{
		Base:    domain.CurrencyUSD,
		Rates:   map[domain.Currency]float64{domain.CurrencyUSD: 1, domain.CurrencyEUR: 0.92},
		TakenAt: baseTime,
	}).Times(times)
	return p
}

func TestPortfolioUseCase_GetPortfolio(t *testing.T) {
	f := newFixture()
	seedPortfolio(f)
	uc := f.portfolioUseCase(ratesProvider(t, 1), domain.PolicyApprovedOnly)

	p, err := uc.GetPortfolio(context.Background(), usecase.GetPortfolioInput{
		ViewerID:          alice,
		ReportingCurrency: domain.CurrencyUSD,
	})
	require.NoError(t, err)
	require.Len(t, p.Ledgers, 2)

	byID := map[string]domain.LedgerBalance{}
	for _, l := range p.Ledgers {
		byID[l.LedgerID] = l
	}

	shared := byID[sharedLedger]
	assert.Equal(t, "Bob", shared.FriendName)
	require.Len(t, shared.Balances, 1, "pending GBP entry is not counted")
	assert.True(t, shared.Balances[0].Amount.Equal(amount("30")))
	require.NotNil(t, shared.Converted)
	assert.Equal(t, "32.61", shared.Converted.StringFixed(2))

	withCarol := byID[carolLedger]
	assert.Equal(t, domain.DefaultFriendName, withCarol.FriendName)
	require.NotNil(t, withCarol.Converted)
	assert.Equal(t, "10.00", withCarol.Converted.StringFixed(2))

	require.NotNil(t, p.TotalConverted)
	assert.Equal(t, "42.61", p.TotalConverted.StringFixed(2))
	assert.Len(t, p.Total, 2, "orphan entry stays out of the totals")
}

func TestPortfolioUseCase_GetPortfolioPolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    domain.StatusPolicy
		viewer    string
		wantTotal map[domain.Currency]string
	}{
		{
			name:      "approved only for author",
			policy:    domain.PolicyApprovedOnly,
			viewer:    alice,
			wantTotal: map[domain.Currency]string{domain.CurrencyEUR: "30", domain.CurrencyUSD: "10"},
		},
		{
			name:      "all statuses for author",
			policy:    domain.PolicyAllStatuses,
			viewer:    alice,
			wantTotal: map[domain.Currency]string{domain.CurrencyEUR: "30", domain.CurrencyUSD: "10", domain.CurrencyGBP: "4"},
		},
		{
			name:      "counterparty sees mirrored balances",
			policy:    domain.PolicyAllStatuses,
			viewer:    bob,
			wantTotal: map[domain.Currency]string{domain.CurrencyEUR: "-30", domain.CurrencyGBP: "-4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seedPortfolio(f)
			uc := f.portfolioUseCase(ratesProvider(t, 0), tt.policy)

			p, err := uc.GetPortfolio(context.Background(), usecase.GetPortfolioInput{ViewerID: tt.viewer})
			require.NoError(t, err)

			assert.Nil(t, p.TotalConverted)
			assert.Nil(t, p.Rates)

			got := map[domain.Currency]string{}
			for _, b := range p.Total {
				got[b.Currency] = b.Amount.String()
			}
			assert.Equal(t, tt.wantTotal, got)
		})
	}
}

func TestPortfolioUseCase_GetPortfolioValidation(t *testing.T) {
	f := newFixture()
	uc := f.portfolioUseCase(ratesProvider(t, 0), "")

	_, err := uc.GetPortfolio(context.Background(), usecase.GetPortfolioInput{ViewerID: alice, ReportingCurrency: "XYZ"})
	require.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = uc.GetPortfolio(context.Background(), usecase.GetPortfolioInput{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPortfolioUseCase_GetLedgerBalances(t *testing.T) {
	f := newFixture()
	seedPortfolio(f)
	uc := f.portfolioUseCase(nil, domain.PolicyApprovedOnly)

	balances, err := uc.GetLedgerBalances(context.Background(), bob, sharedLedger)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, domain.CurrencyEUR, balances[0].Currency)
	assert.True(t, balances[0].Amount.Equal(amount("-30")))

	_, err = uc.GetLedgerBalances(context.Background(), carol, sharedLedger)
	require.ErrorIs(t, err, domain.ErrNotLedgerMember)
}

func TestPortfolioUseCase_WatchRecomputesOnChange(t *testing.T) {
	f := newFixture()
	seedPortfolio(f)
	portfolios := f.portfolioUseCase(nil, domain.PolicyAllStatuses)
	entries := f.entryUseCase(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *domain.Portfolio, 4)
	done := make(chan error, 1)
	go func() {
		done <- portfolios.Watch(ctx, usecase.GetPortfolioInput{ViewerID: bob}, func(p *domain.Portfolio) {
			updates <- p
		})
	}()

	first := waitPortfolio(t, updates)
	assert.Len(t, first.Total, 2)

	_, err := entries.CreateEntry(context.Background(), usecase.CreateEntryInput{
		ActorID: bob, LedgerID: sharedLedger, Type: domain.EntryTypeLent, Amount: amount("5"), Currency: domain.CurrencyJPY,
	})
	require.NoError(t, err)

	second := waitPortfolio(t, updates)
	assert.True(t, domain.BalanceOf(second.Total, domain.CurrencyJPY).Equal(amount("5")))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Equal(t, 0, f.notifier.Subscribers())
}

func waitPortfolio(t *testing.T, updates <-chan *domain.Portfolio) *domain.Portfolio {
	t.Helper()
	select {
	case p := <-updates:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for portfolio update")
		return nil
	}
}
