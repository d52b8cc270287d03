package service

import (
	"context"
	"testing"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationReportsDriftWithoutRewriting(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	gomock.InOrder(
		// deposit
		client.EXPECT().LatestPrice(gomock.Any()).Return(fixedQuote(200_000_000_000), nil),
		// reconciliation after the price moved
		client.EXPECT().LatestPrice(gomock.Any()).Return(fixedQuote(300_000_000_000), nil),
	)

	f := newFixtureWith(t, client, nil)
	ctx := context.Background()
	_, err := f.ledger.DepositNative(ctx, alice, amount(t, oneNative))
	require.NoError(t, err)

	normalizer, err := NewNormalizer(client, 0)
	require.NoError(t, err)
	svc := NewReconciliationService(f.store, normalizer, domain.DefaultCapUSD6)

	rep, err := svc.Run(ctx)
	require.NoError(t, err)
	requireAmount(t, "2000000000", rep.Recorded)
	requireAmount(t, "3000000000", rep.Revalued)
	requireAmount(t, "1000000000", rep.Drift)
	assert.Equal(t, 1, rep.Holders)
	assert.False(t, rep.OverCapped)

	requireAmount(t, "2000000000", f.total(t))
}

func TestReconciliationOracleFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	client.EXPECT().LatestPrice(gomock.Any()).Return(fixedQuote(0), nil)

	f := newFixture(t)
	normalizer, err := NewNormalizer(client, 0)
	require.NoError(t, err)

	_, err = NewReconciliationService(f.store, normalizer, domain.DefaultCapUSD6).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrOracleUnavailable)
}
