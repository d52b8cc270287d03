package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationReport compares the recorded native total with a revaluation
// of every native balance at the current price.
type ReconciliationReport struct {
	Recorded   decimal.Decimal `json:"recorded_total"`
	Revalued   decimal.Decimal `json:"revalued_total"`
	Drift      decimal.Decimal `json:"drift"`
	Holders    int             `json:"holders"`
	Price      decimal.Decimal `json:"price"`
	CheckedAt  time.Time       `json:"checked_at"`
	OverCapped bool            `json:"over_cap"`
}

// ReconciliationService reports how far the recorded total has drifted from
// custody. Drift is expected after floor and saturating-subtract losses, so
// the recorded total is never rewritten.
type ReconciliationService struct {
	store      repository.Store
	normalizer *Normalizer
	cap        decimal.Decimal
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store repository.Store, normalizer *Normalizer, capUSD6 decimal.Decimal) *ReconciliationService {
	return &ReconciliationService{store: store, normalizer: normalizer, cap: capUSD6}
}

// Run takes a consistent snapshot and values it with a single quote.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	var (
		recorded decimal.Decimal
		holdings []domain.Balance
	)
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		if recorded, err = tx.Total(ctx); err != nil {
			return fmt.Errorf("read total: %w", err)
		}
		if holdings, err = tx.NativeBalances(ctx); err != nil {
			return fmt.Errorf("read native balances: %w", err)
		}
		return nil
	})
	if err != nil {
		return ReconciliationReport{}, err
	}

	q, err := s.normalizer.Quote(ctx)
	if err != nil {
		return ReconciliationReport{}, err
	}

	revalued := decimal.Zero
	for _, b := range holdings {
		v, err := domain.NormalizeNative(b.Amount, q)
		if err != nil {
			return ReconciliationReport{}, fmt.Errorf("revalue %s: %w", b.Principal, err)
		}
		revalued = revalued.Add(v)
	}

	rep := ReconciliationReport{
		Recorded:   recorded,
		Revalued:   revalued,
		Drift:      revalued.Sub(recorded),
		Holders:    len(holdings),
		Price:      q.Value,
		CheckedAt:  time.Now().UTC(),
		OverCapped: s.cap.IsPositive() && revalued.GreaterThan(s.cap),
	}

	drift, _ := rep.Drift.Float64()
	observability.SetReconciliationDrift(drift)

	fields := []zap.Field{
		zap.String("recorded_total", recorded.String()),
		zap.String("revalued_total", revalued.String()),
		zap.String("drift", rep.Drift.String()),
		zap.Int("holders", rep.Holders),
	}
	if rep.Drift.IsZero() {
		zap.L().Info("ledger total reconciled", fields...)
	} else {
		zap.L().Warn("ledger total drift detected", fields...)
	}
	return rep, nil
}
