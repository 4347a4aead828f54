// ABOUTME: File-backed key-value storage in the user's config directory
// ABOUTME: One file per key, atomic replace, guarded by an inter-process file lock

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// Keys may not start with a dot: that rules out ".", "..", the lock file and
// in-progress temp files.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// File stores each key as a file under dir. Writers on the same machine are
// serialized with a lock file so two gymtrack processes never interleave a
// write.
type File struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile creates a file-backed store rooted at dir. The directory is created
// lazily on first write.
func NewFile(dir string) *File {
	return &File{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}
}

// Dir returns the directory holding the stored keys
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: invalid key %q", ErrStorage, key)
	}
	return filepath.Join(f.dir, key), nil
}

// Get reads the value stored under key
func (f *File) Get(ctx context.Context, key string) (string, error) {
	p, err := f.path(key)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.dir); os.IsNotExist(err) {
		return "", ErrNotFound
	}

	ok, err := f.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		return "", fmt.Errorf("%w: acquire read lock: %v", ErrStorage, err)
	}
	defer f.lock.Unlock()

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrStorage, key, err)
	}
	return string(data), nil
}

// Set writes value under key, replacing any previous value atomically
func (f *File) Set(ctx context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	return f.withWriteLock(ctx, func() error {
		tmp, err := os.CreateTemp(f.dir, "."+key+".*")
		if err != nil {
			return err
		}
		tmpName := tmp.Name()

		if _, err := tmp.WriteString(value); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpName)
			return err
		}
		return os.Rename(tmpName, p)
	})
}

// Remove deletes key. Removing a missing key is not an error.
func (f *File) Remove(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	_, statErr := os.Stat(f.dir)
	f.mu.Unlock()
	if os.IsNotExist(statErr) {
		return nil
	}

	return f.withWriteLock(ctx, func() error {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (f *File) withWriteLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Session files hold credentials, keep them private to the user.
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStorage, f.dir, err)
	}

	ok, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		return fmt.Errorf("%w: acquire write lock: %v", ErrStorage, err)
	}
	defer f.lock.Unlock()

	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
