// ABOUTME: Tests for the navigation gate
// ABOUTME: Checks the snapshot projection and mounting across a sign-in/sign-out cycle

package gate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gymtrack/gymtrack/internal/apitest"
	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/session"
	"github.com/gymtrack/gymtrack/internal/storage"
)

func TestSelect(t *testing.T) {
	user := &client.User{ID: "u-1", Name: "Ana"}
	tests := []struct {
		name string
		snap session.Snapshot
		want Stack
	}{
		{"uninitialized", session.Snapshot{State: session.Uninitialized, IsLoading: true}, StackLoading},
		{"loading", session.Snapshot{State: session.Loading, IsLoading: true}, StackLoading},
		{"loading ignores user", session.Snapshot{State: session.Loading, IsLoading: true, User: user}, StackLoading},
		{"authenticated", session.Snapshot{State: session.Authenticated, User: user}, StackApp},
		{"authenticated without user", session.Snapshot{State: session.Authenticated}, StackLoading},
		{"anonymous", session.Snapshot{State: session.Anonymous}, StackAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Select(tt.snap))
		})
	}
}

func TestStack_String(t *testing.T) {
	require.Equal(t, "loading", StackLoading.String())
	require.Equal(t, "auth", StackAuth.String())
	require.Equal(t, "app", StackApp.String())
}

type mounts struct {
	mu     sync.Mutex
	stacks []Stack
}

func (m *mounts) mount(s Stack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stacks = append(m.stacks, s)
}

func (m *mounts) all() []Stack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stack(nil), m.stacks...)
}

func TestMount_FollowsSessionLifecycle(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ana", "a@b.com", "secret1")
	backend := storage.NewMemory()
	store := session.NewStore(backend)
	c := client.New(srv.URL, client.WithCredentialStore(store))
	m := session.NewMachine(c, store)
	t.Cleanup(m.Teardown)

	var got mounts
	unmount := Mount(m, got.mount)
	t.Cleanup(unmount)

	ctx := context.Background()
	m.Bootstrap(ctx)
	_, err := m.SignIn(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	m.SignOut(ctx)

	require.Equal(t, []Stack{StackLoading, StackLoading, StackAuth, StackApp, StackAuth}, got.all())
	require.Zero(t, backend.Len())
}

func TestMount_ForcedExpiryMountsAuthOnce(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ana", "a@b.com", "secret1")
	store := session.NewStore(storage.NewMemory())
	c := client.New(srv.URL, client.WithCredentialStore(store))
	m := session.NewMachine(c, store)
	t.Cleanup(m.Teardown)

	ctx := context.Background()
	m.Bootstrap(ctx)
	_, err := m.SignIn(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	var got mounts
	unmount := Mount(m, got.mount)
	t.Cleanup(unmount)

	srv.ExpireAccessTokens()
	srv.RevokeRefreshTokens()
	_, err = c.History(ctx)
	require.ErrorIs(t, err, client.ErrSessionExpired)

	require.Equal(t, []Stack{StackApp, StackAuth}, got.all())
}
