package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Movement is a custody transfer recorded by MockAdapter.
type Movement struct {
	Direction Direction
	AssetID   domain.AssetID
	Principal domain.Principal
	Amount    decimal.Decimal
	Reference string
	At        time.Time
}

// MockAdapter simulates custody in process. It fails a configurable fraction
// of calls and can be forced to fail for specific assets.
type MockAdapter struct {
	// FailureRate is the probability of failure (0.0 to 1.0). Default: 0.
	FailureRate float64
	// Latency is an optional simulated network delay.
	Latency time.Duration

	mu        sync.Mutex
	failing   map[domain.AssetID]error
	movements []Movement
	rng       *rand.Rand
}

// NewMockAdapter creates a MockAdapter that always succeeds.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		failing: make(map[domain.AssetID]error),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FailAsset makes every transfer of asset fail with reason until Recover is called.
func (m *MockAdapter) FailAsset(asset domain.AssetID, reason error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[asset] = reason
}

// Recover clears a forced failure.
func (m *MockAdapter) Recover(asset domain.AssetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failing, asset)
}

// Movements returns a copy of the recorded successful transfers.
func (m *MockAdapter) Movements() []Movement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Movement, len(m.movements))
	copy(out, m.movements)
	return out
}

func (m *MockAdapter) PullIn(ctx context.Context, asset domain.AssetID, from domain.Principal, amount decimal.Decimal) error {
	return m.move(ctx, DirectionIn, asset, from, amount)
}

func (m *MockAdapter) PushOut(ctx context.Context, asset domain.AssetID, to domain.Principal, amount decimal.Decimal) error {
	return m.move(ctx, DirectionOut, asset, to, amount)
}

func (m *MockAdapter) move(ctx context.Context, dir Direction, asset domain.AssetID, p domain.Principal, amount decimal.Decimal) error {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return &TransferError{Direction: dir, AssetID: asset, Principal: p, Amount: amount, Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if reason, ok := m.failing[asset]; ok {
		return &TransferError{Direction: dir, AssetID: asset, Principal: p, Amount: amount, Err: reason}
	}
	if m.FailureRate > 0 && m.rng.Float64() < m.FailureRate {
		return &TransferError{Direction: dir, AssetID: asset, Principal: p, Amount: amount, Err: fmt.Errorf("custody temporarily unavailable")}
	}

	m.movements = append(m.movements, Movement{
		Direction: dir,
		AssetID:   asset,
		Principal: p,
		Amount:    amount,
		Reference: fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), m.rng.Intn(100000)),
		At:        time.Now().UTC(),
	})
	return nil
}
