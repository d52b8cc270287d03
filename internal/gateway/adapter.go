// Package gateway defines the custody transfer boundary the ledger calls into.
package gateway

import (
	"context"
	"fmt"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Direction of a custody movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

//go:generate mockgen -source adapter.go -destination ../service/adapter_mock_test.go -package service

// Adapter moves value between a principal and custody.
// Implementations must report failure; the native PushOut is a direct value
// transfer and its error may never be swallowed.
type Adapter interface {
	// PullIn moves amount of asset from the principal into custody.
	PullIn(ctx context.Context, asset domain.AssetID, from domain.Principal, amount decimal.Decimal) error
	// PushOut moves amount of asset from custody to the principal.
	PushOut(ctx context.Context, asset domain.AssetID, to domain.Principal, amount decimal.Decimal) error
}

// TransferError describes a failed movement.
type TransferError struct {
	Direction Direction
	AssetID   domain.AssetID
	Principal domain.Principal
	Amount    decimal.Decimal
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s of %s %s for %s: %v", e.Direction, e.Amount.String(), e.AssetID, e.Principal, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
