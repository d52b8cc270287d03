package service

import (
	"context"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"go.uber.org/zap"
)

// runAndPublish executes fn as one serialized transaction. Events returned by
// fn go to the outbox in the same transaction and are published only after
// commit; a failed fn publishes nothing.
func runAndPublish(ctx context.Context, store repository.Store, pub events.Publisher, fn func(tx repository.Tx) ([]domain.Event, error)) error {
	var emitted []domain.Event
	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		evs, err := fn(tx)
		if err != nil {
			return err
		}
		if len(evs) > 0 {
			if err := tx.AppendEvents(context.WithoutCancel(ctx), evs...); err != nil {
				return err
			}
		}
		emitted = evs
		return nil
	})
	if err != nil {
		return err
	}
	publish(ctx, pub, emitted)
	return nil
}

func publish(ctx context.Context, pub events.Publisher, evs []domain.Event) {
	if pub == nil || len(evs) == 0 {
		return
	}
	if err := pub.Publish(ctx, evs); err != nil {
		observability.IncrementEventPublish("failed")
		zap.L().Warn("event publish failed; outbox retains events", zap.Error(err), zap.Int("count", len(evs)))
		return
	}
	observability.IncrementEventPublish("success")
}
