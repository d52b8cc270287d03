package repository

import (
	"context"
	"os"
	"testing"

	"github.com/ayo6706/custody-ledger/internal/db"
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/testutil/dblock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env") // Load from root
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	dblock.Acquire(t)

	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"), 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE balances, assets, role_grants, ledger_events`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE ledger_state SET total_normalized = 0 WHERE id = 1`)
	require.NoError(t, err)
	return pool
}

func TestPostgresStoreCommitAndRollback(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	// 10^30 exceeds int64; NUMERIC(78,0) must hold it exactly.
	big, err := decimal.NewFromString("1000000000000000000000000000000")
	require.NoError(t, err)

	require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.SetBalance(ctx, "0xalice", domain.NativeAsset, big); err != nil {
			return err
		}
		if err := tx.SetTotal(ctx, decimal.NewFromInt(2_000_000_000)); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, domain.DepositedEvent("0xalice", domain.NativeAsset, big))
	}))

	err = store.RunInTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.SetBalance(ctx, "0xalice", domain.NativeAsset, decimal.Zero))
		return domain.ErrTransferFailed
	})
	require.ErrorIs(t, err, domain.ErrTransferFailed)

	require.NoError(t, store.View(ctx, func(tx Tx) error {
		bal, err := tx.Balance(ctx, "0xalice", domain.NativeAsset)
		require.NoError(t, err)
		require.True(t, big.Equal(bal))
		total, err := tx.Total(ctx)
		require.NoError(t, err)
		require.Equal(t, "2000000000", total.String())
		natives, err := tx.NativeBalances(ctx)
		require.NoError(t, err)
		require.Len(t, natives, 1)
		return nil
	}))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestPostgresStoreCommitsAfterCancel(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresStore(pool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.SetBalance(ctx, "0xalice", domain.NativeAsset, decimal.NewFromInt(10)); err != nil {
			return err
		}
		cancel()
		return nil
	}))

	bg := context.Background()
	require.NoError(t, store.View(bg, func(tx Tx) error {
		bal, err := tx.Balance(bg, "0xalice", domain.NativeAsset)
		require.NoError(t, err)
		require.Equal(t, "10", bal.String())
		return nil
	}))
}

func TestPostgresStoreAssetsAndRoles(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.PutAsset(ctx, domain.AssetRecord{AssetID: "0xusdc", Decimals: 6}); err != nil {
			return err
		}
		added, err := tx.GrantRole(ctx, domain.RoleAdministrator, "0xbob")
		require.True(t, added)
		return err
	}))

	require.NoError(t, store.View(ctx, func(tx Tx) error {
		rec, ok, err := tx.Asset(ctx, "0xusdc")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint8(6), rec.Decimals)
		has, err := tx.HasRole(ctx, domain.RoleAdministrator, "0xbob")
		require.NoError(t, err)
		require.True(t, has)
		require.ErrorIs(t, tx.SetTotal(ctx, decimal.NewFromInt(1)), ErrReadOnly)
		return nil
	}))
}
