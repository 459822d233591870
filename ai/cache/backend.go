package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Backend stores opaque values by key with a TTL.
// The in-memory backend serves a single process; the Redis backend shares answers across replicas.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// MemoryBackend is a Backend over LRUCache.
type MemoryBackend struct {
	lru *LRUCache[string, []byte]
}

// NewMemoryBackend creates an in-process backend holding up to capacity entries.
func NewMemoryBackend(capacity int, defaultTTL time.Duration) *MemoryBackend {
	return &MemoryBackend{lru: NewLRUCache[string, []byte](capacity, defaultTTL)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.Set(key, value, ttl)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *MemoryBackend) Name() string { return "memory" }

// Stats exposes the underlying LRU counters.
func (m *MemoryBackend) Stats() Stats { return m.lru.Stats() }

// GetJSON reads key from b and decodes it into a T.
// A value that no longer decodes is treated as a miss and deleted.
func GetJSON[T any](ctx context.Context, b Backend, key string) (T, bool, error) {
	var out T
	raw, ok, err := b.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		_ = b.Delete(ctx, key)
		return out, false, nil
	}
	return out, true, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, b Backend, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return b.Set(ctx, key, raw, ttl)
}
