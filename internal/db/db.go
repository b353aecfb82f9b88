// Package db defines the key-value cache used to share content source pages
// between sessions.
package db

import (
	"context"
	"time"
)

// Store is a connected cache backend.
type Store interface {
	Pinger
	KVStore

	// WaitForReady blocks until the backend answers a ping or timeout elapses.
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger reports backend reachability. Used by health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore stores opaque values under string keys. Get returns ErrKeyNotFound on a miss.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
