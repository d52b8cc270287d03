package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore serializes writers on the singleton ledger_state row.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store wrapper around a pgx connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx executes fn within a database transaction holding the ledger lock.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM ledger_state WHERE id = 1 FOR UPDATE`).Scan(&one); err != nil {
		return fmt.Errorf("lock ledger state: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	// fn may already have moved value through the custody adapter.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View executes fn in a read-only transaction without taking the ledger lock.
func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, readOnly: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *pgTx) Total(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	if err := t.tx.QueryRow(ctx, `SELECT total_normalized::text FROM ledger_state WHERE id = 1`).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("read total: %w", err)
	}
	return parseNumeric(raw)
}

func (t *pgTx) SetTotal(ctx context.Context, total decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE ledger_state SET total_normalized = $1::numeric, updated_at = NOW() WHERE id = 1`, total.String())
	if err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	return requireExactlyOne(tag.RowsAffected(), "update total")
}

func (t *pgTx) Balance(ctx context.Context, p domain.Principal, asset domain.AssetID) (decimal.Decimal, error) {
	var raw string
	err := t.tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE principal = $1 AND asset_id = $2`, string(p), string(asset)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return parseNumeric(raw)
}

func (t *pgTx) SetBalance(ctx context.Context, p domain.Principal, asset domain.AssetID, amount decimal.Decimal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("refusing negative balance %s for %s/%s", amount.String(), p, asset)
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO balances (principal, asset_id, amount, updated_at)
		VALUES ($1, $2, $3::numeric, NOW())
		ON CONFLICT (principal, asset_id) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
	`, string(p), string(asset), amount.String())
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return requireExactlyOne(tag.RowsAffected(), "upsert balance")
}

func (t *pgTx) Balances(ctx context.Context, p domain.Principal) ([]domain.Balance, error) {
	return t.queryBalances(ctx, `
		SELECT principal, asset_id, amount::text FROM balances
		WHERE principal = $1 AND amount > 0
		ORDER BY asset_id
	`, string(p))
}

func (t *pgTx) NativeBalances(ctx context.Context) ([]domain.Balance, error) {
	return t.queryBalances(ctx, `
		SELECT principal, asset_id, amount::text FROM balances
		WHERE asset_id = $1 AND amount > 0
		ORDER BY principal
	`, string(domain.NativeAsset))
}

func (t *pgTx) queryBalances(ctx context.Context, query string, arg string) ([]domain.Balance, error) {
	rows, err := t.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var out []domain.Balance
	for rows.Next() {
		var principal, asset, raw string
		if err := rows.Scan(&principal, &asset, &raw); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		amount, err := parseNumeric(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Balance{Principal: domain.Principal(principal), AssetID: domain.AssetID(asset), Amount: amount})
	}
	return out, rows.Err()
}

func (t *pgTx) Asset(ctx context.Context, asset domain.AssetID) (domain.AssetRecord, bool, error) {
	var rec domain.AssetRecord
	var id string
	var decimals int16
	err := t.tx.QueryRow(ctx, `SELECT asset_id, decimals, registered_at FROM assets WHERE asset_id = $1`, string(asset)).
		Scan(&id, &decimals, &rec.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssetRecord{}, false, nil
	}
	if err != nil {
		return domain.AssetRecord{}, false, fmt.Errorf("read asset: %w", err)
	}
	rec.AssetID = domain.AssetID(id)
	rec.Decimals = uint8(decimals)
	return rec, true, nil
}

func (t *pgTx) PutAsset(ctx context.Context, rec domain.AssetRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO assets (asset_id, decimals, registered_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (asset_id) DO UPDATE SET decimals = EXCLUDED.decimals, updated_at = NOW()
	`, string(rec.AssetID), int16(rec.Decimals), rec.RegisteredAt)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return requireExactlyOne(tag.RowsAffected(), "upsert asset")
}

func (t *pgTx) ListAssets(ctx context.Context) ([]domain.AssetRecord, error) {
	rows, err := t.tx.Query(ctx, `SELECT asset_id, decimals, registered_at FROM assets ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetRecord
	for rows.Next() {
		var rec domain.AssetRecord
		var id string
		var decimals int16
		if err := rows.Scan(&id, &decimals, &rec.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		rec.AssetID = domain.AssetID(id)
		rec.Decimals = uint8(decimals)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *pgTx) HasRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND principal = $2)`, string(role), string(p)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("read role grant: %w", err)
	}
	return exists, nil
}

func (t *pgTx) GrantRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO role_grants (role, principal, granted_at) VALUES ($1, $2, NOW())
		ON CONFLICT (role, principal) DO NOTHING
	`, string(role), string(p))
	if err != nil {
		return false, fmt.Errorf("insert role grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) RevokeRole(ctx context.Context, role domain.Role, p domain.Principal) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM role_grants WHERE role = $1 AND principal = $2`, string(role), string(p))
	if err != nil {
		return false, fmt.Errorf("delete role grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) AppendEvents(ctx context.Context, events ...domain.Event) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, ev := range events {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO ledger_events (id, kind, payload, occurred_at) VALUES ($1, $2, $3, $4)
		`, ev.ID, ev.Kind, []byte(ev.Payload), ev.OccurredAt)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Kind, err)
		}
	}
	return nil
}

func parseNumeric(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", raw, err)
	}
	return d, nil
}
