// Package blobstore persists transformed images under their cache key.
//
// Every backend follows the same contract:
//   - Get returns (nil, false, nil) when the key is absent. Only backend
//     failures are errors.
//   - Put overwrites; the last writer wins.
//   - Entries never expire.
//   - Implementations are safe for concurrent use.
package blobstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores used after Close
var ErrClosed = errors.New("blobstore: closed")

// Store is a durable key/value store for transformed blobs
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}
