// ABOUTME: Key-value storage contract for durable client state
// ABOUTME: String keys and string-serialized values, with get/set/remove

package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when nothing is stored under the key.
	ErrNotFound = errors.New("key not found")

	// ErrStorage wraps every I/O failure of a storage backend.
	ErrStorage = errors.New("storage failure")
)

// Storage is an async-style key-value store. Implementations must be safe
// for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
