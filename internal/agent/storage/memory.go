package storage

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-memory Adapter used in tests and as a fallback when
// no durable store is available. Safe for concurrent use.
type MemoryAdapter struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{buckets: make(map[string]map[string][]byte)}
}

func (a *MemoryAdapter) Get(_ context.Context, bucket, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	value, ok := a.buckets[bucket][key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (a *MemoryAdapter) Set(_ context.Context, bucket, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		a.buckets[bucket] = b
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b[key] = cp
	return nil
}

func (a *MemoryAdapter) Delete(_ context.Context, bucket, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.buckets[bucket], key)
	return nil
}

func (a *MemoryAdapter) List(_ context.Context, bucket string) (map[string][]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string][]byte, len(a.buckets[bucket]))
	for k, v := range a.buckets[bucket] {
		cp := make([]byte, len(v))
		copy(cp, v)
		result[k] = cp
	}
	return result, nil
}

func (a *MemoryAdapter) Clear(_ context.Context, bucket string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.buckets, bucket)
	return nil
}
