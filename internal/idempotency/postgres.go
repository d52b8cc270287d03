package idempotency

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps idempotency records in the idempotency_keys table.
type PostgresBackend struct {
	db *pgxpool.Pool
}

func NewPostgresBackend(db *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := b.db.QueryRow(ctx, `
		SELECT idempotency_key, request_hash, response_status, response_body, content_type, in_progress
		FROM idempotency_keys
		WHERE idempotency_key = $1`, key).
		Scan(&rec.Key, &rec.RequestHash, &rec.Status, &rec.Body, &rec.ContentType, &rec.InProgress)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (b *PostgresBackend) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	tag, err := b.db.Exec(ctx, `
		INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING`, key, requestHash, method, path)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (b *PostgresBackend) Complete(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (Record, error) {
	rec := Record{Key: key, RequestHash: requestHash}
	err := b.db.QueryRow(ctx, `
		UPDATE idempotency_keys
		SET response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE, updated_at = NOW()
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING response_status, response_body, content_type`, key, requestHash, status, body, contentType).
		Scan(&rec.Status, &rec.Body, &rec.ContentType)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (b *PostgresBackend) Release(ctx context.Context, key, requestHash string) error {
	_, err := b.db.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress`, key, requestHash)
	return err
}
