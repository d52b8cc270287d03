package app

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/config"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		HTTPPort:               "0",
		StoreDriver:            config.StoreDriverMemory,
		JWTSecret:              "test-secret-0123456789-test-secret",
		JWTIssuer:              "custody-ledger",
		JWTAudience:            "custody-ledger-api",
		OracleSource:           "0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419",
		OraclePrice:            decimal.NewFromInt(200_000_000_000),
		CapUSD6:                domain.DefaultCapUSD6,
		BootstrapAdmin:         domain.NewPrincipal("0x00000000000000000000000000000000000000a1"),
		ReconciliationInterval: time.Hour,
		IdempotencyTTL:         time.Hour,
		PublicRateLimitRPS:     10,
		AuthRateLimitRPS:       10,
	}
}

func TestNewMemoryAppReconciles(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.access.Bootstrap(ctx, a.cfg.BootstrapAdmin))
	_, err = a.ledger.DepositNative(ctx, domain.NewPrincipal("0x00000000000000000000000000000000000000b2"), decimal.RequireFromString("1000000000000000000"))
	require.NoError(t, err)

	rep, err := a.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Drift.IsZero())
	assert.Equal(t, 1, rep.Holders)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Error(t, a.Migrate(context.Background()))
}

func TestServeStopsOnContextCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
