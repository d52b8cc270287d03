package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/db"
	"github.com/ayo6706/custody-ledger/internal/testutil/dblock"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

func TestPostgresBackendLifecycle(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	dblock.Acquire(t)

	ctx := context.Background()
	pool, err := db.Connect(ctx, os.Getenv("DATABASE_URL"), 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE idempotency_keys`)
	require.NoError(t, err)

	s := NewStore(nil, NewPostgresBackend(pool), time.Hour)

	ok, err := s.Reserve(ctx, "0xalice:k1", "h1", "POST", "/v1/deposits/native")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Reserve(ctx, "0xalice:k1", "h1", "POST", "/v1/deposits/native")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Lookup(ctx, "0xalice:k1", "h1")
	assert.ErrorIs(t, err, ErrInProgress)

	_, err = s.Finalize(ctx, "0xalice:k1", "h1", 201, []byte(`{"noop":false}`), "application/json")
	require.NoError(t, err)

	rec, err := s.Lookup(ctx, "0xalice:k1", "h1")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)
	assert.Equal(t, "postgres", rec.ServedBy)

	_, err = s.Lookup(ctx, "0xalice:k1", "other")
	assert.ErrorIs(t, err, ErrHashMismatch)
}
