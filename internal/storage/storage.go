// Package storage is the persisted client state: session tokens, the cached
// user and the guest cart. Session manager and cart synchronizer read and
// write disjoint keys, so no cross-component coordination is needed.
package storage

import (
	"context"
	"errors"
)

// Store defines the interface for client-state persistence.
// Consumers define this interface, not the Redis implementation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrKeyNotFound = errors.New("key not found")

// Well-known keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyGuestCart    = "cart"
)
