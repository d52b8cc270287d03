package config

import (
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789-test-secret"

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ORACLE_SOURCE", "0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419")
	t.Setenv("BOOTSTRAP_ADMIN", "0x00000000000000000000000000000000000000A1")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.True(t, cfg.CapUSD6.Equal(domain.DefaultCapUSD6))
	assert.Equal(t, "200000000000", cfg.OraclePrice.String())
	assert.Equal(t, time.Hour, cfg.ReconciliationInterval)
	assert.Equal(t, domain.Principal("0x00000000000000000000000000000000000000a1"), cfg.BootstrapAdmin)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.DevTokens)
}

func TestLoadPrefixedAliases(t *testing.T) {
	setRequired(t)
	t.Setenv("LEDGER_PORT", "9090")
	t.Setenv("LEDGER_CAP_USD6", "5000000")
	t.Setenv("LEDGER_ORACLE_MAX_AGE", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "5000000", cfg.CapUSD6.String())
	assert.Equal(t, 90*time.Second, cfg.OracleMaxAge)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "short jwt secret", key: "JWT_SECRET", val: "short"},
		{name: "missing oracle source", key: "ORACLE_SOURCE", val: " "},
		{name: "zero cap", key: "CAP_USD6", val: "0"},
		{name: "fractional cap", key: "CAP_USD6", val: "1.5"},
		{name: "missing bootstrap admin", key: "BOOTSTRAP_ADMIN", val: ""},
		{name: "unknown store driver", key: "STORE_DRIVER", val: "sqlite"},
		{name: "bad duration", key: "RECONCILIATION_INTERVAL", val: "soon"},
		{name: "non-positive static price", key: "ORACLE_PRICE", val: "0"},
		{name: "failure rate out of range", key: "CUSTODY_FAILURE_RATE", val: "1.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.val)

			_, err := Load()
			require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestStaticPriceNotRequiredWithOracleURL(t *testing.T) {
	setRequired(t)
	t.Setenv("ORACLE_URL", "http://oracle.internal/price")
	t.Setenv("ORACLE_PRICE", "0")

	_, err := Load()
	require.NoError(t, err)
}
