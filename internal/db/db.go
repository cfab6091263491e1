// Package db defines the storage contract behind the model registry.
package db

import (
	"context"
	"time"
)

// Store is everything the registry needs from a backend: plain values for
// model slots, hashes for run summaries, and connection lifecycle.
type Store interface {
	Pinger
	ValueStore
	HashStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValueStore reads and writes opaque values. Get returns ErrKeyNotFound for a missing key.
type ValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// HashStore writes hashes and reads them back in bulk.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}
