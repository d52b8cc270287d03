// Package events delivers committed ledger events to observers.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"go.uber.org/zap"
)

// Publisher receives events after the transaction that produced them commits.
type Publisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		p.logger.Info("ledger_event",
			zap.String("event_id", ev.ID.String()),
			zap.String("kind", ev.Kind),
			zap.ByteString("payload", ev.Payload),
		)
	}
	return nil
}

// MultiPublisher fans out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Publish(ctx context.Context, events []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}
