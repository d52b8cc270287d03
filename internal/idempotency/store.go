package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const redisKeyPrefix = "ledger:idempotency"

// Record is a stored response for a replayed mutating request.
type Record struct {
	Key         string
	RequestHash string
	Status      int
	Body        []byte
	ContentType string
	InProgress  bool
	ServedBy    string
}

// Backend is the durable home of idempotency records.
type Backend interface {
	// Get returns ErrNotFound when key is unknown.
	Get(ctx context.Context, key string) (Record, error)
	// Reserve reports false when key already exists.
	Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error)
	// Complete stores the response for a reserved key and returns ErrNotFound
	// when no matching reservation exists.
	Complete(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (Record, error)
	// Release drops an in-progress reservation so the key can be retried.
	Release(ctx context.Context, key, requestHash string) error
	Name() string
}

// Store fronts a Backend with an optional Redis cache of completed records.
type Store struct {
	redis   redis.Cmdable
	backend Backend
	ttl     time.Duration
	poll    time.Duration
}

func NewStore(rdb redis.Cmdable, backend Backend, ttl time.Duration) *Store {
	return &Store{redis: rdb, backend: backend, ttl: ttl, poll: 50 * time.Millisecond}
}

type cacheEnvelope struct {
	Key         string `json:"key"`
	Hash        string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

// Lookup returns the completed record for key. A cached hit skips the backend.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	if rec, ok := s.cached(ctx, key); ok {
		if rec.RequestHash != requestHash {
			return nil, ErrHashMismatch
		}
		return rec, nil
	}

	rec, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if rec.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if rec.InProgress {
		return nil, ErrInProgress
	}
	rec.ServedBy = s.backend.Name()
	s.cache(ctx, rec)
	return &rec, nil
}

// Reserve claims key for the calling request.
func (s *Store) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	ok, err := s.backend.Reserve(ctx, key, requestHash, method, path)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Finalize records the response of a reserved request.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (*Record, error) {
	rec, err := s.backend.Complete(ctx, key, requestHash, status, body, contentType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finalize idempotency key: %w", err)
	}
	rec.ServedBy = s.backend.Name()
	s.cache(ctx, rec)
	return &rec, nil
}

// Release abandons a reservation without recording a response. Used when the
// outcome was transient and a retry with the same key must run again.
func (s *Store) Release(ctx context.Context, key, requestHash string) error {
	if err := s.backend.Release(ctx, key, requestHash); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// WaitForCompletion polls until the request holding key finishes.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrInProgress) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Store) cached(ctx context.Context, key string) (*Record, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
		return nil, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, false
	}
	return &Record{
		Key:         env.Key,
		RequestHash: env.Hash,
		Status:      env.Status,
		Body:        env.Body,
		ContentType: env.ContentType,
		ServedBy:    "redis",
	}, true
}

func (s *Store) cache(ctx context.Context, rec Record) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(cacheEnvelope{
		Key:         rec.Key,
		Hash:        rec.RequestHash,
		Status:      rec.Status,
		Body:        rec.Body,
		ContentType: rec.ContentType,
	})
	if err != nil {
		zap.L().Warn("marshal idempotency cache", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(rec.Key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, key)
}
