package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrReadOnly is returned when a View callback attempts a write.
var ErrReadOnly = errors.New("write attempted in read-only view")

// Tx is the unit of work handed to RunInTx and View callbacks. Everything a
// callback writes becomes visible atomically on commit, or not at all.
type Tx interface {
	Total(ctx context.Context) (decimal.Decimal, error)
	SetTotal(ctx context.Context, total decimal.Decimal) error

	Balance(ctx context.Context, p domain.Principal, asset domain.AssetID) (decimal.Decimal, error)
	SetBalance(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) error
	Balances(ctx context.Context, p domain.Principal) ([]domain.Balance, error)
	NativeBalances(ctx context.Context) ([]domain.Balance, error)

	Asset(ctx context.Context, asset domain.AssetID) (domain.AssetRecord, bool, error)
	PutAsset(ctx context.Context, rec domain.AssetRecord) error
	ListAssets(ctx context.Context) ([]domain.AssetRecord, error)

	HasRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error)
	// GrantRole reports whether the grant was newly added.
	GrantRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error)
	// RevokeRole reports whether a grant was removed.
	RevokeRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error)

	AppendEvents(ctx context.Context, events ...domain.Event) error
}

// Store runs serialized read-write transactions and read-only views.
// RunInTx callbacks never interleave with each other.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}
