// ABOUTME: Session state machine: the single owner of the signed-in user
// ABOUTME: Reconciles memory, the persistent store, and the transport, then notifies subscribers

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gymtrack/gymtrack/internal/client"
)

// State is the session lifecycle position
type State int

const (
	Uninitialized State = iota
	Loading
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrSuperseded means the session changed identity while the operation
	// was in flight, so its result was dropped.
	ErrSuperseded = errors.New("session changed while the operation was in flight")

	// ErrSignUpSignInFailed means the account was created but the follow-up
	// sign-in failed. The user must sign in manually.
	ErrSignUpSignInFailed = errors.New("account created but sign-in failed")

	// ErrNotAuthenticated is returned by operations that need a signed-in user
	ErrNotAuthenticated = errors.New("not signed in")

	errNoChange = errors.New("no change")
)

// Snapshot is the read-only view handed to consumers. User is nil unless
// State is Authenticated, and must be ignored while IsLoading is true.
type Snapshot struct {
	State     State
	User      *client.User
	IsLoading bool
}

// Transport is the slice of the API client the machine drives
type Transport interface {
	SignIn(ctx context.Context, email, password string) (*client.SignInResult, error)
	SignUp(ctx context.Context, name, email, password string) (*client.User, error)
	UpdateProfile(ctx context.Context, update client.ProfileUpdate) (client.AcceptedProfile, error)
	SetCredentials(creds client.Credentials)
	ClearCredentials()
	Credentials() (client.Credentials, bool)
	OnSessionExpired(fn func())
	Close()
}

// Machine owns the in-memory session. Lock order is notifyMu, then mu, then
// the transport's and store's own locks.
type Machine struct {
	transport Transport
	store     *Store
	logger    *slog.Logger

	// notifyMu serializes transitions so subscribers see snapshots in order
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	user        *client.User
	generation  uint64
	subscribers map[int]func(Snapshot)
	nextID      int
}

// NewMachine creates a machine in the Uninitialized state and registers for
// forced expiry from the transport.
func NewMachine(transport Transport, store *Store) *Machine {
	m := &Machine{
		transport:   transport,
		store:       store,
		logger:      slog.Default(),
		subscribers: make(map[int]func(Snapshot)),
	}
	transport.OnSessionExpired(m.expire)
	return m
}

// Snapshot returns the current session view
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     m.state,
		IsLoading: m.state == Uninitialized || m.state == Loading,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Subscribe registers fn to receive every snapshot after a transition. fn
// runs synchronously and must not call back into the machine's operations.
func (m *Machine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Watch subscribes fn and immediately delivers the current snapshot. No
// transition can land between the two, so fn sees every state in order.
func (m *Machine) Watch(fn func(Snapshot)) (unsubscribe func()) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	unsubscribe = m.Subscribe(fn)
	fn(m.Snapshot())
	return unsubscribe
}

// transition applies change under the state lock and, if it succeeds,
// notifies subscribers with the resulting snapshot.
func (m *Machine) transition(change func() error) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if err := change(); err != nil {
		m.mu.Unlock()
		return err
	}
	snap := m.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func (m *Machine) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Bootstrap loads the persisted session once. It always leaves the machine
// Authenticated or Anonymous; later calls just return the current snapshot.
func (m *Machine) Bootstrap(ctx context.Context) Snapshot {
	var gen uint64
	err := m.transition(func() error {
		if m.state != Uninitialized {
			return errNoChange
		}
		m.state = Loading
		gen = m.generation
		return nil
	})
	if err != nil {
		return m.Snapshot()
	}

	user, creds, ok := m.store.Load(ctx)

	err = m.transition(func() error {
		if m.generation != gen {
			return ErrSuperseded
		}
		m.generation++
		if ok {
			m.transport.SetCredentials(creds)
			m.user = &user
			m.state = Authenticated
		} else {
			m.state = Anonymous
		}
		return nil
	})
	if err != nil {
		m.logger.Debug("Stored session ignored, session already changed", "op", "bootstrap")
	} else {
		m.logger.Debug("Session restored", "op", "bootstrap", "authenticated", ok)
	}
	return m.Snapshot()
}

// SignIn authenticates and, on success, persists and installs the session
func (m *Machine) SignIn(ctx context.Context, email, password string) (client.User, error) {
	gen := m.currentGeneration()

	result, err := m.transport.SignIn(ctx, email, password)
	if err != nil {
		m.logger.Debug("Sign-in failed", "op", "sign_in", "error", err)
		return client.User{}, err
	}

	user := result.User
	creds := result.Credentials()
	err = m.transition(func() error {
		if m.generation != gen {
			return ErrSuperseded
		}
		// Installing first retires any refresh still running for the old pair,
		// so it cannot overwrite what is saved below.
		prev, hadPrev := m.transport.Credentials()
		m.transport.SetCredentials(creds)
		if err := m.store.Save(context.WithoutCancel(ctx), user, creds); err != nil {
			if hadPrev {
				m.transport.SetCredentials(prev)
			} else {
				m.transport.ClearCredentials()
			}
			return err
		}
		m.user = &user
		m.state = Authenticated
		m.generation++
		return nil
	})
	if err != nil {
		m.logger.Warn("Sign-in result not applied", "op", "sign_in", "user_id", user.ID, "error", err)
		return client.User{}, err
	}

	m.logger.Info("Signed in", "op", "sign_in", "user_id", user.ID)
	return user, nil
}

// SignUp creates the account and then signs in with the same credentials.
// If only the sign-in fails the error wraps ErrSignUpSignInFailed and the
// session stays as it was.
func (m *Machine) SignUp(ctx context.Context, name, email, password string) (client.User, error) {
	if _, err := m.transport.SignUp(ctx, name, email, password); err != nil {
		m.logger.Debug("Sign-up failed", "op", "sign_up", "error", err)
		return client.User{}, err
	}

	user, err := m.SignIn(ctx, email, password)
	if err != nil {
		return client.User{}, fmt.Errorf("%w: %w", ErrSignUpSignInFailed, err)
	}
	return user, nil
}

// SignOut clears the transport, the store, and memory. Store failures are
// logged and otherwise ignored.
func (m *Machine) SignOut(ctx context.Context) {
	m.transition(func() error {
		m.transport.ClearCredentials()
		if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Failed to clear stored session", "op", "sign_out", "error", err)
		}
		m.user = nil
		m.state = Anonymous
		m.generation++
		return nil
	})
	m.logger.Info("Signed out", "op", "sign_out")
}

// UpdateProfile sends update and merges the accepted fields into the user.
// On any failure the visible user is left exactly as it was.
func (m *Machine) UpdateProfile(ctx context.Context, update client.ProfileUpdate) (client.User, error) {
	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return client.User{}, ErrNotAuthenticated
	}
	gen := m.generation
	m.mu.Unlock()

	accepted, err := m.transport.UpdateProfile(ctx, update)
	if err != nil {
		m.logger.Debug("Profile update failed", "op", "update_profile", "error", err)
		return client.User{}, err
	}

	var updated client.User
	err = m.transition(func() error {
		if m.generation != gen || m.user == nil {
			return ErrSuperseded
		}
		if _, ok := m.transport.Credentials(); !ok {
			return ErrSuperseded
		}
		next := accepted.Apply(*m.user)
		if err := m.store.SaveUser(context.WithoutCancel(ctx), next); err != nil {
			return err
		}
		m.user = &next
		updated = next
		return nil
	})
	if err != nil {
		m.logger.Warn("Profile update not applied", "op", "update_profile", "error", err)
		return client.User{}, err
	}

	m.logger.Info("Profile updated", "op", "update_profile", "user_id", updated.ID)
	return updated, nil
}

// expire handles a failed refresh. The transport has already cleared its
// credentials and the store.
func (m *Machine) expire() {
	err := m.transition(func() error {
		if m.state != Authenticated {
			return errNoChange
		}
		// A new session was installed after the refresh failed.
		if _, ok := m.transport.Credentials(); ok {
			return errNoChange
		}
		m.user = nil
		m.state = Anonymous
		m.generation++
		return nil
	})
	if err == nil {
		m.logger.Warn("Session expired, signed out", "op", "expire")
	}
}

// Teardown drops all subscribers and releases transport resources. It does
// not sign out.
func (m *Machine) Teardown() {
	m.mu.Lock()
	clear(m.subscribers)
	m.mu.Unlock()

	m.transport.OnSessionExpired(nil)
	m.transport.Close()
}
