package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/gateway"
	"github.com/ayo6706/custody-ledger/internal/oracle"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	admin = domain.Principal("0x00000000000000000000000000000000000000a1")
	alice = domain.Principal("0x00000000000000000000000000000000000000b2")
	bob   = domain.Principal("0x00000000000000000000000000000000000000c3")

	usdc = domain.AssetID("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	weth = domain.AssetID("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
)

// 2000.00000000 per native unit.
var price2000 = decimal.NewFromInt(200_000_000_000)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

type fixture struct {
	store    *repository.MemoryStore
	recorder *events.Recorder
	custody  *gateway.MockAdapter
	access   *AccessControl
	assets   *AssetRegistry
	ledger   *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, staticOracle(t), nil)
}

// newFixtureWith builds a fixture around the given oracle. A nil adapter uses
// the in-process custody simulator.
func newFixtureWith(t *testing.T, client oracle.Client, adapter gateway.Adapter) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		recorder: &events.Recorder{},
		custody:  gateway.NewMockAdapter(),
	}
	if adapter == nil {
		adapter = f.custody
	}
	normalizer, err := NewNormalizer(client, 0)
	require.NoError(t, err)

	f.access = NewAccessControl(f.store, f.recorder)
	f.assets = NewAssetRegistry(f.store, f.recorder)
	f.ledger, err = NewLedger(f.store, normalizer, adapter, f.recorder, domain.DefaultCapUSD6)
	require.NoError(t, err)

	require.NoError(t, f.access.Bootstrap(context.Background(), admin))
	return f
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, amount(t, want).Equal(got), "want %s, got %s", want, got)
}

func (f *fixture) balance(t *testing.T, p domain.Principal, asset domain.AssetID) decimal.Decimal {
	t.Helper()
	bal, err := f.ledger.BalanceOf(context.Background(), p, asset)
	require.NoError(t, err)
	return bal
}

func (f *fixture) total(t *testing.T) decimal.Decimal {
	t.Helper()
	st, err := f.ledger.CapState(context.Background())
	require.NoError(t, err)
	return st.TotalNormalized
}

func movementPayload(t *testing.T, ev domain.Event) domain.MovementPayload {
	t.Helper()
	var p domain.MovementPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	return p
}

func fixedQuote(value int64) domain.PriceQuote {
	return domain.PriceQuote{
		Value:     decimal.NewFromInt(value),
		Decimals:  domain.FeedDecimals,
		UpdatedAt: time.Now().UTC(),
		Valid:     true,
	}
}

func staticOracle(t *testing.T) oracle.Client {
	t.Helper()
	client, err := oracle.NewStaticClient("0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419", price2000)
	require.NoError(t, err)
	return client
}
