// ABOUTME: Tests for the persistent session store
// ABOUTME: Covers round trips, write ordering, and degraded loads

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/storage"
)

// recordingBackend logs every write and can fail selected operations
type recordingBackend struct {
	*storage.Memory

	mu   sync.Mutex
	ops  []string
	fail map[string]bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{Memory: storage.NewMemory(), fail: map[string]bool{}}
}

func (b *recordingBackend) failOn(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[op] = true
}

func (b *recordingBackend) record(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
	if b.fail[op] {
		return fmt.Errorf("%w: injected failure on %s", storage.ErrStorage, op)
	}
	return nil
}

func (b *recordingBackend) Get(ctx context.Context, key string) (string, error) {
	if err := b.record("get:" + key); err != nil {
		return "", err
	}
	return b.Memory.Get(ctx, key)
}

func (b *recordingBackend) Set(ctx context.Context, key, value string) error {
	if err := b.record("set:" + key); err != nil {
		return err
	}
	return b.Memory.Set(ctx, key, value)
}

func (b *recordingBackend) Remove(ctx context.Context, key string) error {
	if err := b.record("remove:" + key); err != nil {
		return err
	}
	return b.Memory.Remove(ctx, key)
}

func (b *recordingBackend) writes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, op := range b.ops {
		if !strings.HasPrefix(op, "get:") {
			out = append(out, op)
		}
	}
	return out
}

var (
	testUser  = client.User{ID: "u-1", Name: "Ana", Email: "a@b.com", Avatar: "ana.png"}
	testCreds = client.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(storage.NewMemory())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testUser, testCreds))

	user, creds, ok := s.Load(ctx)
	require.True(t, ok)
	require.Equal(t, testUser, user)
	require.Equal(t, testCreds, creds)
}

func TestStore_RoundTripFileBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, NewStore(storage.NewFile(dir)).Save(ctx, testUser, testCreds))

	user, creds, ok := NewStore(storage.NewFile(dir)).Load(ctx)
	require.True(t, ok)
	require.Equal(t, testUser, user)
	require.Equal(t, testCreds, creds)
}

func TestStore_SaveWritesCredentialsFirst(t *testing.T) {
	b := newRecordingBackend()
	s := NewStore(b)

	require.NoError(t, s.Save(context.Background(), testUser, testCreds))
	require.Equal(t, []string{"set:" + TokenKey, "set:" + UserKey}, b.writes())
}

func TestStore_InterruptedSaveLoadsAsAbsent(t *testing.T) {
	b := newRecordingBackend()
	b.failOn("set:" + UserKey)
	s := NewStore(b)
	ctx := context.Background()

	err := s.Save(ctx, testUser, testCreds)
	require.ErrorIs(t, err, storage.ErrStorage)

	_, _, ok := s.Load(ctx)
	require.False(t, ok)
}

func TestStore_ClearRemovesUserFirst(t *testing.T) {
	b := newRecordingBackend()
	s := NewStore(b)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testUser, testCreds))

	require.NoError(t, s.Clear(ctx))
	require.Equal(t, []string{
		"set:" + TokenKey, "set:" + UserKey,
		"remove:" + UserKey, "remove:" + TokenKey,
	}, b.writes())
	require.Zero(t, b.Len())
}

func TestStore_ClearAttemptsBothKeys(t *testing.T) {
	b := newRecordingBackend()
	b.failOn("remove:" + UserKey)
	s := NewStore(b)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testUser, testCreds))

	err := s.Clear(ctx)
	require.ErrorIs(t, err, storage.ErrStorage)

	_, err = b.Memory.Get(ctx, TokenKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SaveCredentialsKeepsUser(t *testing.T) {
	s := NewStore(storage.NewMemory())
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testUser, testCreds))

	rotated := client.Credentials{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, s.SaveCredentials(ctx, rotated))

	user, creds, ok := s.Load(ctx)
	require.True(t, ok)
	require.Equal(t, testUser, user)
	require.Equal(t, rotated, creds)
}

func TestStore_SaveUserKeepsCredentials(t *testing.T) {
	s := NewStore(storage.NewMemory())
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, testUser, testCreds))

	renamed := testUser
	renamed.Name = "Ana Maria"
	require.NoError(t, s.SaveUser(ctx, renamed))

	user, creds, ok := s.Load(ctx)
	require.True(t, ok)
	require.Equal(t, renamed, user)
	require.Equal(t, testCreds, creds)
}

func TestStore_LoadDegradesToAbsent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, b *recordingBackend)
	}{
		{
			name:  "empty",
			setup: func(t *testing.T, b *recordingBackend) {},
		},
		{
			name: "credentials without user",
			setup: func(t *testing.T, b *recordingBackend) {
				require.NoError(t, b.Memory.Set(context.Background(), TokenKey, `{"token":"a","refresh_token":"r"}`))
			},
		},
		{
			name: "corrupt user",
			setup: func(t *testing.T, b *recordingBackend) {
				require.NoError(t, b.Memory.Set(context.Background(), UserKey, `{"id":`))
				require.NoError(t, b.Memory.Set(context.Background(), TokenKey, `{"token":"a","refresh_token":"r"}`))
			},
		},
		{
			name: "user without id",
			setup: func(t *testing.T, b *recordingBackend) {
				require.NoError(t, b.Memory.Set(context.Background(), UserKey, `{"name":"Ana"}`))
				require.NoError(t, b.Memory.Set(context.Background(), TokenKey, `{"token":"a","refresh_token":"r"}`))
			},
		},
		{
			name: "read error",
			setup: func(t *testing.T, b *recordingBackend) {
				require.NoError(t, b.Memory.Set(context.Background(), UserKey, `{"id":"u-1"}`))
				require.NoError(t, b.Memory.Set(context.Background(), TokenKey, `{"token":"a","refresh_token":"r"}`))
				b.failOn("get:" + TokenKey)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newRecordingBackend()
			tt.setup(t, b)

			user, creds, ok := NewStore(b).Load(context.Background())
			require.False(t, ok)
			require.Zero(t, user)
			require.Zero(t, creds)
		})
	}
}

func TestStore_SaveFailureIsStorageError(t *testing.T) {
	b := newRecordingBackend()
	b.failOn("set:" + TokenKey)

	err := NewStore(b).Save(context.Background(), testUser, testCreds)
	require.True(t, errors.Is(err, storage.ErrStorage))
	require.Equal(t, []string{"set:" + TokenKey}, b.writes())
}
