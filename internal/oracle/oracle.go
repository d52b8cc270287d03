// Package oracle supplies native-asset price quotes to the ledger.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source oracle.go -destination ../service/oracle_mock_test.go -package service

// Client returns the latest native-asset price at domain.FeedDecimals precision.
type Client interface {
	LatestPrice(ctx context.Context) (domain.PriceQuote, error)
}

// StaticClient always returns the configured price.
type StaticClient struct {
	price decimal.Decimal
}

// NewStaticClient builds a fixed-price oracle. source mirrors the feed address
// a deployment must provide and may not be empty.
func NewStaticClient(source string, price decimal.Decimal) (*StaticClient, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: oracle source is required", domain.ErrInvalidConfiguration)
	}
	return &StaticClient{price: price}, nil
}

func (c *StaticClient) LatestPrice(ctx context.Context) (domain.PriceQuote, error) {
	return domain.PriceQuote{
		Value:     c.price,
		Decimals:  domain.FeedDecimals,
		UpdatedAt: time.Now().UTC(),
		Valid:     c.price.IsPositive(),
	}, nil
}
