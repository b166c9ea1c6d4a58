// Package cache defines the store that compiled grammars are cached in and
// how the keys of that store are made.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned by Get when there is no entry for a key.
var ErrNotFound = errors.New("no cached entry for key")

// Cache stores encoded compiled grammars by key. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the data stored for key, or an error that wraps ErrNotFound
	// if there is none.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data for key, replacing any data already stored for it.
	Put(ctx context.Context, key string, data []byte) error

	// Close releases the resources held by the Cache.
	Close() error
}

// Key returns the cache key for compiling source with the given program
// version and option settings. It is the hex form of a BLAKE2b-256 digest of
// every part, each prefixed with its length so that no two different lists of
// parts give the same input to the digest.
func Key(version, source string, opts ...string) string {
	// New256 only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)

	parts := append([]string{version, source}, opts...)
	for _, p := range parts {
		h.Write(binary.AppendUvarint(nil, uint64(len(p))))
		h.Write([]byte(p))
	}

	return hex.EncodeToString(h.Sum(nil))
}
