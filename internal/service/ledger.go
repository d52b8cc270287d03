package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/gateway"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Receipt describes the state after a successful ledger operation.
type Receipt struct {
	Principal       domain.Principal `json:"principal"`
	AssetID         domain.AssetID   `json:"asset_id"`
	Amount          decimal.Decimal  `json:"amount"`
	Balance         decimal.Decimal  `json:"balance"`
	TotalNormalized decimal.Decimal  `json:"total_normalized"`
	// ValueUSD6 is set for native operations only.
	ValueUSD6 decimal.Decimal `json:"value_usd6"`
	// Noop is true when a fallback receive of zero was accepted without effects.
	Noop bool `json:"noop,omitempty"`
}

// Ledger owns balances and the normalized native total. Every public
// operation is a single serialized transaction: checks, then effects, then
// the custody interaction. An interaction failure rolls back the effects.
type Ledger struct {
	store      repository.Store
	normalizer *Normalizer
	adapter    gateway.Adapter
	publisher  events.Publisher
	cap        decimal.Decimal
}

func NewLedger(store repository.Store, normalizer *Normalizer, adapter gateway.Adapter, publisher events.Publisher, capUSD6 decimal.Decimal) (*Ledger, error) {
	if store == nil || normalizer == nil || adapter == nil {
		return nil, fmt.Errorf("%w: ledger requires store, normalizer and adapter", domain.ErrInvalidConfiguration)
	}
	if !capUSD6.IsPositive() || !capUSD6.IsInteger() {
		return nil, fmt.Errorf("%w: cap must be a positive integer, got %s", domain.ErrInvalidConfiguration, capUSD6)
	}
	return &Ledger{
		store:      store,
		normalizer: normalizer,
		adapter:    adapter,
		publisher:  publisher,
		cap:        capUSD6,
	}, nil
}

// Cap returns the configured ceiling in usd6.
func (l *Ledger) Cap() decimal.Decimal { return l.cap }

// DepositNative credits native value already received into custody.
func (l *Ledger) DepositNative(ctx context.Context, p domain.Principal, amount decimal.Decimal) (Receipt, error) {
	return l.execute(ctx, domain.OpDepositNative, p, domain.NativeAsset, amount, func(tx repository.Tx, r *Receipt) ([]domain.Event, error) {
		return l.depositNative(ctx, tx, p, amount, r)
	})
}

// DepositAsset pulls amount of a registered asset into custody and credits it.
func (l *Ledger) DepositAsset(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) (Receipt, error) {
	return l.execute(ctx, domain.OpDepositAsset, p, asset, amount, func(tx repository.Tx, r *Receipt) ([]domain.Event, error) {
		if err := domain.RequirePositive(amount); err != nil {
			return nil, err
		}
		ok, err := isRegistered(ctx, tx, asset)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotRegistered, asset)
		}
		bal, err := tx.Balance(ctx, p, asset)
		if err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}

		// The transfer has to land before anything is credited.
		if err := l.interact(ctx, gateway.DirectionIn, asset, p, amount); err != nil {
			return nil, err
		}

		bal = bal.Add(amount)
		if err := tx.SetBalance(context.WithoutCancel(ctx), p, asset, bal); err != nil {
			return nil, fmt.Errorf("write balance: %w", err)
		}
		r.Balance = bal
		return []domain.Event{domain.DepositedEvent(p, asset, amount)}, nil
	})
}

// WithdrawNative debits native value and sends it to p.
func (l *Ledger) WithdrawNative(ctx context.Context, p domain.Principal, amount decimal.Decimal) (Receipt, error) {
	return l.execute(ctx, domain.OpWithdrawNative, p, domain.NativeAsset, amount, func(tx repository.Tx, r *Receipt) ([]domain.Event, error) {
		if err := domain.RequirePositive(amount); err != nil {
			return nil, err
		}
		bal, err := debit(ctx, tx, p, domain.NativeAsset, amount)
		if err != nil {
			return nil, err
		}
		r.Balance = bal

		usd, err := l.normalizer.Normalize(ctx, amount)
		if err != nil {
			return nil, err
		}
		total, err := tx.Total(ctx)
		if err != nil {
			return nil, fmt.Errorf("read total: %w", err)
		}
		// Saturating: the total may under-report after floor losses but never goes negative.
		total = domain.SaturatingSub(total, usd)
		if err := tx.SetTotal(ctx, total); err != nil {
			return nil, fmt.Errorf("write total: %w", err)
		}
		r.TotalNormalized = total
		r.ValueUSD6 = usd

		if err := l.interact(ctx, gateway.DirectionOut, domain.NativeAsset, p, amount); err != nil {
			return nil, err
		}
		return []domain.Event{domain.WithdrawnEvent(p, domain.NativeAsset, amount)}, nil
	})
}

// WithdrawAsset debits a registered asset and sends it to p.
func (l *Ledger) WithdrawAsset(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) (Receipt, error) {
	return l.execute(ctx, domain.OpWithdrawAsset, p, asset, amount, func(tx repository.Tx, r *Receipt) ([]domain.Event, error) {
		if err := domain.RequirePositive(amount); err != nil {
			return nil, err
		}
		bal, err := tx.Balance(ctx, p, asset)
		if err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		if bal.LessThan(amount) {
			return nil, fmt.Errorf("%w: have %s, need %s", domain.ErrInsufficientBalance, bal, amount)
		}
		ok, err := isRegistered(ctx, tx, asset)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotRegistered, asset)
		}

		bal = bal.Sub(amount)
		if err := tx.SetBalance(ctx, p, asset, bal); err != nil {
			return nil, fmt.Errorf("write balance: %w", err)
		}
		r.Balance = bal

		if err := l.interact(ctx, gateway.DirectionOut, asset, p, amount); err != nil {
			return nil, err
		}
		return []domain.Event{domain.WithdrawnEvent(p, asset, amount)}, nil
	})
}

// ReceiveBare handles native value that arrived without a deposit call.
// A zero amount is accepted silently on the fallback path and rejected on the
// receive path; anything else is a native deposit.
func (l *Ledger) ReceiveBare(ctx context.Context, p domain.Principal, amount decimal.Decimal, path domain.ReceivePath) (Receipt, error) {
	switch path {
	case domain.ReceivePathFallback, domain.ReceivePathReceive:
	default:
		return Receipt{}, fmt.Errorf("%w: unknown receive path %q", domain.ErrInvalidConfiguration, path)
	}
	if path == domain.ReceivePathFallback && amount.IsZero() {
		observability.IncrementLedgerOperation(domain.OpReceiveBare, "noop")
		zap.L().Debug("fallback receive of zero ignored", zap.String("principal", p.String()))
		return Receipt{Principal: p, AssetID: domain.NativeAsset, Amount: amount, Noop: true}, nil
	}
	return l.execute(ctx, domain.OpReceiveBare, p, domain.NativeAsset, amount, func(tx repository.Tx, r *Receipt) ([]domain.Event, error) {
		return l.depositNative(ctx, tx, p, amount, r)
	})
}

func (l *Ledger) depositNative(ctx context.Context, tx repository.Tx, p domain.Principal, amount decimal.Decimal, r *Receipt) ([]domain.Event, error) {
	if err := domain.RequirePositive(amount); err != nil {
		return nil, err
	}
	usd, err := l.normalizer.Normalize(ctx, amount)
	if err != nil {
		return nil, err
	}
	total, err := tx.Total(ctx)
	if err != nil {
		return nil, fmt.Errorf("read total: %w", err)
	}
	newTotal := total.Add(usd)
	if newTotal.GreaterThan(l.cap) {
		l.notifyCap(p, newTotal)
		return nil, &domain.CapExceededError{Attempted: newTotal, Cap: l.cap}
	}
	bal, err := tx.Balance(ctx, p, domain.NativeAsset)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	bal = bal.Add(amount)
	if err := tx.SetBalance(ctx, p, domain.NativeAsset, bal); err != nil {
		return nil, fmt.Errorf("write balance: %w", err)
	}
	if err := tx.SetTotal(ctx, newTotal); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}
	r.Balance = bal
	r.TotalNormalized = newTotal
	r.ValueUSD6 = usd
	return []domain.Event{domain.DepositedEvent(p, domain.NativeAsset, amount)}, nil
}

// notifyCap reports a would-be breach. The notification is diagnostic and
// goes away with the reverted operation, so it is logged and never stored.
func (l *Ledger) notifyCap(p domain.Principal, attempted decimal.Decimal) {
	ev := domain.CapNotificationEvent(attempted, l.cap)
	observability.IncrementCapNotification()
	zap.L().Warn("deposit would exceed cap",
		zap.String("event_id", ev.ID.String()),
		zap.String("kind", ev.Kind),
		zap.String("principal", p.String()),
		zap.String("attempted", attempted.String()),
		zap.String("cap", l.cap.String()),
	)
}

// interact moves value through the custody adapter. Once started, the transfer
// and everything after it run to completion even if the caller goes away.
func (l *Ledger) interact(ctx context.Context, dir gateway.Direction, asset domain.AssetID, p domain.Principal, amount decimal.Decimal) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	if dir == gateway.DirectionIn {
		err = l.adapter.PullIn(ctx, asset, p, amount)
	} else {
		err = l.adapter.PushOut(ctx, asset, p, amount)
	}
	if err != nil {
		observability.IncrementTransferFailure(string(dir))
		return fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	return nil
}

func debit(ctx context.Context, tx repository.Tx, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) (decimal.Decimal, error) {
	bal, err := tx.Balance(ctx, p, asset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	if bal.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: have %s, need %s", domain.ErrInsufficientBalance, bal, amount)
	}
	bal = bal.Sub(amount)
	if err := tx.SetBalance(ctx, p, asset, bal); err != nil {
		return decimal.Zero, fmt.Errorf("write balance: %w", err)
	}
	return bal, nil
}

// execute runs op as one transaction and records its outcome.
func (l *Ledger) execute(ctx context.Context, op string, p domain.Principal, asset domain.AssetID, amount decimal.Decimal, fn func(tx repository.Tx, r *Receipt) ([]domain.Event, error)) (Receipt, error) {
	start := time.Now()
	if p == "" {
		return Receipt{}, fmt.Errorf("%w: principal is required", domain.ErrInvalidConfiguration)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		observability.IncrementLedgerOperation(op, domain.ErrorKind(err))
		return Receipt{}, err
	}

	var r Receipt
	err := runAndPublish(ctx, l.store, l.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		r = Receipt{Principal: p, AssetID: asset, Amount: amount, ValueUSD6: decimal.Zero}
		evs, err := fn(tx, &r)
		if err != nil {
			return nil, err
		}
		if r.TotalNormalized.IsZero() {
			total, err := tx.Total(context.WithoutCancel(ctx))
			if err != nil {
				return nil, fmt.Errorf("read total: %w", err)
			}
			r.TotalNormalized = total
		}
		return evs, nil
	})

	kind := domain.ErrorKind(err)
	observability.IncrementLedgerOperation(op, kind)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("principal", p.String()),
		zap.String("asset_id", asset.String()),
		zap.String("amount", amount.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.String("result", kind), zap.Error(err))
		if errors.Is(err, domain.ErrTransferFailed) || kind == "internal" {
			zap.L().Error("ledger operation failed", fields...)
		} else {
			zap.L().Info("ledger operation rejected", fields...)
		}
		return Receipt{}, err
	}
	total, _ := r.TotalNormalized.Float64()
	observability.SetTotalNormalized(total)
	zap.L().Info("ledger operation applied", fields...)
	return r, nil
}

// BalanceOf returns the balance of p in asset; unknown pairs are zero.
func (l *Ledger) BalanceOf(ctx context.Context, p domain.Principal, asset domain.AssetID) (decimal.Decimal, error) {
	bal := decimal.Zero
	err := l.store.View(ctx, func(tx repository.Tx) error {
		var err error
		bal, err = tx.Balance(ctx, p, asset)
		return err
	})
	return bal, err
}

// Balances returns every non-zero balance held by p.
func (l *Ledger) Balances(ctx context.Context, p domain.Principal) ([]domain.Balance, error) {
	var out []domain.Balance
	err := l.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Balances(ctx, p)
		return err
	})
	return out, err
}

// CapState returns the recorded total and the configured cap.
func (l *Ledger) CapState(ctx context.Context) (domain.GlobalCapState, error) {
	st := domain.GlobalCapState{Cap: l.cap}
	err := l.store.View(ctx, func(tx repository.Tx) error {
		var err error
		st.TotalNormalized, err = tx.Total(ctx)
		return err
	})
	return st, err
}

// NativeValueOf values p's native balance at the current oracle price.
func (l *Ledger) NativeValueOf(ctx context.Context, p domain.Principal) (decimal.Decimal, error) {
	bal, err := l.BalanceOf(ctx, p, domain.NativeAsset)
	if err != nil {
		return decimal.Zero, err
	}
	if bal.IsZero() {
		return decimal.Zero, nil
	}
	return l.normalizer.Normalize(ctx, bal)
}
