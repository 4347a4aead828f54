// ABOUTME: Persistent session store over the key-value storage backend
// ABOUTME: Saves the user and credential pair as one logical unit; unreadable state loads as absent

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gymtrack/gymtrack/internal/client"
	"github.com/gymtrack/gymtrack/internal/storage"
)

// Storage keys
const (
	UserKey  = "gymtrack.user"
	TokenKey = "gymtrack.token"
)

// Store persists the signed-in user and their credential pair. It implements
// client.CredentialStore so the transport can persist rotated credentials.
type Store struct {
	backend storage.Storage
	logger  *slog.Logger

	// mu makes multi-key writes atomic with respect to each other
	mu sync.Mutex
}

// NewStore wraps backend
func NewStore(backend storage.Storage) *Store {
	return &Store{backend: backend, logger: slog.Default()}
}

// Save writes credentials first and the user second, so an interrupted save
// loads as "no user" rather than a user without tokens.
func (s *Store) Save(ctx context.Context, user client.User, creds client.Credentials) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setCredentials(ctx, creds); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, UserKey, string(userJSON)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// SaveUser replaces the stored user, leaving the credential pair. The
// transport keeps the stored pair current on its own.
func (s *Store) SaveUser(ctx context.Context, user client.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, UserKey, string(userJSON)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// SaveCredentials replaces the stored credential pair, leaving the user
func (s *Store) SaveCredentials(ctx context.Context, creds client.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setCredentials(ctx, creds)
}

func (s *Store) setCredentials(ctx context.Context, creds client.Credentials) error {
	credsJSON, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := s.backend.Set(ctx, TokenKey, string(credsJSON)); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Clear removes the user and then the credentials. Both removals are
// attempted even if the first fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.backend.Remove(ctx, UserKey); err != nil {
		errs = append(errs, fmt.Errorf("removing user: %w", err))
	}
	if err := s.backend.Remove(ctx, TokenKey); err != nil {
		errs = append(errs, fmt.Errorf("removing credentials: %w", err))
	}
	return errors.Join(errs...)
}

// Load returns the stored session. ok is false when either piece is missing,
// unreadable, or incomplete; failures are logged, never returned.
func (s *Store) Load(ctx context.Context) (user client.User, creds client.Credentials, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.read(ctx, UserKey, &user) || !s.read(ctx, TokenKey, &creds) {
		return client.User{}, client.Credentials{}, false
	}
	if user.ID == "" || creds.AccessToken == "" {
		s.logger.Warn("Discarding incomplete stored session", "has_user_id", user.ID != "", "has_token", creds.AccessToken != "")
		return client.User{}, client.Credentials{}, false
	}
	return user, creds, true
}

func (s *Store) read(ctx context.Context, key string, v any) bool {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("Failed to read stored session", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("Discarding corrupt stored session", "key", key, "error", err)
		return false
	}
	return true
}
