package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/oracle"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Normalizer converts native amounts into the unit of account using the oracle.
type Normalizer struct {
	oracle oracle.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewNormalizer wraps an oracle client. maxAge > 0 rejects quotes older than maxAge.
func NewNormalizer(client oracle.Client, maxAge time.Duration) (*Normalizer, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: oracle client is required", domain.ErrInvalidConfiguration)
	}
	return &Normalizer{oracle: client, maxAge: maxAge, now: time.Now}, nil
}

// Quote fetches and validates the latest price. Every failure is reported as
// ErrOracleUnavailable; nothing is retried.
func (n *Normalizer) Quote(ctx context.Context) (domain.PriceQuote, error) {
	q, err := n.oracle.LatestPrice(ctx)
	if err != nil {
		observability.IncrementOracleFailure()
		zap.L().Warn("oracle query failed", zap.Error(err))
		return domain.PriceQuote{}, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	if !q.Valid || !q.Value.IsPositive() {
		observability.IncrementOracleFailure()
		zap.L().Warn("oracle returned unusable price", zap.String("price", q.Value.String()), zap.Bool("valid", q.Valid))
		return domain.PriceQuote{}, fmt.Errorf("%w: non-positive or invalid price", domain.ErrOracleUnavailable)
	}
	if q.Decimals != domain.FeedDecimals {
		observability.IncrementOracleFailure()
		zap.L().Warn("oracle returned unexpected precision", zap.Uint8("decimals", q.Decimals))
		return domain.PriceQuote{}, fmt.Errorf("%w: feed reports %d decimals, want %d", domain.ErrOracleUnavailable, q.Decimals, domain.FeedDecimals)
	}
	if n.maxAge > 0 && !q.UpdatedAt.IsZero() && n.now().Sub(q.UpdatedAt) > n.maxAge {
		observability.IncrementOracleFailure()
		return domain.PriceQuote{}, fmt.Errorf("%w: quote is older than %s", domain.ErrOracleUnavailable, n.maxAge)
	}
	return q, nil
}

// Normalize values a native amount in usd6 at the current price.
func (n *Normalizer) Normalize(ctx context.Context, nativeAmount decimal.Decimal) (decimal.Decimal, error) {
	q, err := n.Quote(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.NormalizeNative(nativeAmount, q)
}

// ValueOf values any holding in usd6. Registered assets are taken at face
// value in their own precision; the native asset goes through the oracle.
func (n *Normalizer) ValueOf(ctx context.Context, asset domain.AssetID, amount decimal.Decimal, decimals uint8) (decimal.Decimal, error) {
	if asset.IsNative() {
		return n.Normalize(ctx, amount)
	}
	return domain.ToUnit(amount, decimals)
}
