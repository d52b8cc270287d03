package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type balanceKey struct {
	principal domain.Principal
	asset     domain.AssetID
}

type roleKey struct {
	role      domain.Role
	principal domain.Principal
}

type memState struct {
	total    decimal.Decimal
	balances map[balanceKey]decimal.Decimal
	assets   map[domain.AssetID]domain.AssetRecord
	roles    map[roleKey]struct{}
}

func (s *memState) clone() *memState {
	out := &memState{
		total:    s.total,
		balances: make(map[balanceKey]decimal.Decimal, len(s.balances)),
		assets:   make(map[domain.AssetID]domain.AssetRecord, len(s.assets)),
		roles:    make(map[roleKey]struct{}, len(s.roles)),
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.assets {
		out.assets[k] = v
	}
	for k := range s.roles {
		out.roles[k] = struct{}{}
	}
	return out
}

// MemoryStore keeps ledger state in process. Each RunInTx works on a private
// copy that replaces the live state only when the callback succeeds.
type MemoryStore struct {
	mu     sync.Mutex
	state  *memState
	events []domain.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			total:    decimal.Zero,
			balances: make(map[balanceKey]decimal.Decimal),
			assets:   make(map[domain.AssetID]domain.AssetRecord),
			roles:    make(map[roleKey]struct{}),
		},
	}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	s.events = append(s.events, tx.pending...)
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{state: s.state, readOnly: true})
}

// Events returns every committed event in append order.
func (s *MemoryStore) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

type memTx struct {
	state    *memState
	pending  []domain.Event
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *memTx) Total(ctx context.Context) (decimal.Decimal, error) {
	return t.state.total, nil
}

func (t *memTx) SetTotal(ctx context.Context, total decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if total.IsNegative() {
		return fmt.Errorf("refusing negative total %s", total.String())
	}
	t.state.total = total
	return nil
}

func (t *memTx) Balance(ctx context.Context, p domain.Principal, asset domain.AssetID) (decimal.Decimal, error) {
	if v, ok := t.state.balances[balanceKey{p, asset}]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

func (t *memTx) SetBalance(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("refusing negative balance %s for %s/%s", amount.String(), p, asset)
	}
	t.state.balances[balanceKey{p, asset}] = amount
	return nil
}

func (t *memTx) Balances(ctx context.Context, p domain.Principal) ([]domain.Balance, error) {
	var out []domain.Balance
	for k, v := range t.state.balances {
		if k.principal == p && v.IsPositive() {
			out = append(out, domain.Balance{Principal: k.principal, AssetID: k.asset, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

func (t *memTx) NativeBalances(ctx context.Context) ([]domain.Balance, error) {
	var out []domain.Balance
	for k, v := range t.state.balances {
		if k.asset == domain.NativeAsset && v.IsPositive() {
			out = append(out, domain.Balance{Principal: k.principal, AssetID: k.asset, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal < out[j].Principal })
	return out, nil
}

func (t *memTx) Asset(ctx context.Context, asset domain.AssetID) (domain.AssetRecord, bool, error) {
	rec, ok := t.state.assets[asset]
	return rec, ok, nil
}

func (t *memTx) PutAsset(ctx context.Context, rec domain.AssetRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	if prev, ok := t.state.assets[rec.AssetID]; ok {
		rec.RegisteredAt = prev.RegisteredAt
	}
	t.state.assets[rec.AssetID] = rec
	return nil
}

func (t *memTx) ListAssets(ctx context.Context) ([]domain.AssetRecord, error) {
	out := make([]domain.AssetRecord, 0, len(t.state.assets))
	for _, rec := range t.state.assets {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

func (t *memTx) HasRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	_, ok := t.state.roles[roleKey{role, p}]
	return ok, nil
}

func (t *memTx) GrantRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	k := roleKey{role, p}
	if _, ok := t.state.roles[k]; ok {
		return false, nil
	}
	t.state.roles[k] = struct{}{}
	return true, nil
}

func (t *memTx) RevokeRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	k := roleKey{role, p}
	if _, ok := t.state.roles[k]; !ok {
		return false, nil
	}
	delete(t.state.roles, k)
	return true, nil
}

func (t *memTx) AppendEvents(ctx context.Context, events ...domain.Event) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.pending = append(t.pending, events...)
	return nil
}
