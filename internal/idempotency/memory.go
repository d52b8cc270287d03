package idempotency

import (
	"context"
	"sync"
)

// MemoryBackend keeps idempotency records in process.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Get(ctx context.Context, key string) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (b *MemoryBackend) Reserve(ctx context.Context, key, requestHash, method, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[key]; ok {
		return false, nil
	}
	b.records[key] = Record{Key: key, RequestHash: requestHash, InProgress: true}
	return true, nil
}

func (b *MemoryBackend) Complete(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) (Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[key]
	if !ok || rec.RequestHash != requestHash {
		return Record{}, ErrNotFound
	}
	rec.Status = status
	rec.Body = append([]byte(nil), body...)
	rec.ContentType = contentType
	rec.InProgress = false
	b.records[key] = rec
	return rec, nil
}

func (b *MemoryBackend) Release(ctx context.Context, key, requestHash string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.records[key]; ok && rec.InProgress && rec.RequestHash == requestHash {
		delete(b.records, key)
	}
	return nil
}
