// Package storage provides the persistent store adapter: a key/value
// primitive over named buckets, backed by SQLite in production and by an
// in-memory map in tests. Components never touch the database directly;
// they are handed an Adapter (or the typed Records wrapper) instead.
package storage

import "context"

// Adapter is the durability primitive shared by all components. Values are
// opaque byte slices (JSON in practice). A missing key yields (nil, nil)
// from Get; writes are all-or-nothing per key.
type Adapter interface {
	// Get returns the value for key in bucket, or nil if absent.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Set stores value under key in bucket, replacing any previous value.
	Set(ctx context.Context, bucket, key string, value []byte) error

	// Delete removes key from bucket. Deleting an absent key is a no-op.
	Delete(ctx context.Context, bucket, key string) error

	// List returns every key/value pair in bucket.
	List(ctx context.Context, bucket string) (map[string][]byte, error)

	// Clear removes all keys from bucket.
	Clear(ctx context.Context, bucket string) error
}
