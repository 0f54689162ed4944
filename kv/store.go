package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get and GetDel when the key is absent
	// or already expired.
	ErrNotFound = errors.New("kv: key not found")

	// ErrUnavailable wraps backend transport failures so callers can
	// distinguish "missing" from "store down".
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the minimal TTL key-value contract consumed by the token
// revocation list and the OAuth state manager. The backing technology
// is a deployment choice: [Memory] for single-process deployments,
// [Redis] for shared multi-instance deployments.
type Store interface {
	// Put stores value under key for ttl. A non-positive ttl is rejected;
	// every record in this store is meant to expire.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetDel atomically reads and removes key. Single-use records
	// (OAuth state tokens) depend on this being atomic per key.
	GetDel(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
