package cache

import "context"

// Cache is the run-scoped response cache. Entries are written once per
// fingerprint and read many times; the run's lifetime bounds the cache's.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
