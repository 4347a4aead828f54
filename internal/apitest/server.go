// ABOUTME: In-process fake of the gymtrack API for tests
// ABOUTME: Issues expiring JWT access tokens and single-use refresh tokens with fault injection hooks

package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// AccessTokenTTL is the lifetime stamped into issued access tokens
const AccessTokenTTL = 15 * time.Minute

// User is the fake server's view of an account
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type account struct {
	User
	hash []byte
}

type failure struct {
	status  int
	message string
}

type historyRecord struct {
	ID         string
	ExerciseID string
	At         time.Time
}

// Server is a running fake API. Its URL field is the base URL to hand to a
// client.
type Server struct {
	*httptest.Server

	secret []byte

	mu            sync.Mutex
	byEmail       map[string]*account
	byID          map[string]*account
	refreshTokens map[string]string
	generation    int
	history       map[string][]historyRecord
	failures      map[string]failure
	hits          map[string]int
	refreshCalls  int
	requestIDs    map[string]struct{}
	hold          chan struct{}
	noContent     bool
}

// New starts a fake API with the exercise catalog seeded and no accounts.
// The server is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:        []byte("apitest-signing-key"),
		byEmail:       make(map[string]*account),
		byID:          make(map[string]*account),
		refreshTokens: make(map[string]string),
		history:       make(map[string][]historyRecord),
		failures:      make(map[string]failure),
		hits:          make(map[string]int),
		requestIDs:    make(map[string]struct{}),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.injectFailures)

	r.Post("/sessions", s.handleSignIn)
	r.Post("/sessions/refresh-token", s.handleRefresh)
	r.Post("/users", s.handleSignUp)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Put("/users", s.handleUpdateProfile)
		r.Get("/groups", s.handleGroups)
		r.Get("/exercises/bygroup/{group}", s.handleExercisesByGroup)
		r.Get("/exercises/{id}", s.handleExercise)
		r.Get("/history", s.handleHistory)
		r.Post("/history", s.handleRegisterHistory)
	})
	return r
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every outstanding refresh token
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refreshTokens)
}

// HoldRefresh makes refresh calls block after they are counted until the
// returned release func is called.
func (s *Server) HoldRefresh() (release func()) {
	hold := make(chan struct{})
	s.mu.Lock()
	s.hold = hold
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(hold)
		})
	}
}

// FailNext makes the next request to method and path fail with status. An
// empty message produces a body without the application error shape.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// RespondNoContent makes profile updates answer 204 with no body
func (s *Server) RespondNoContent(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noContent = on
}

// RefreshCalls reports how many refresh requests reached the server
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Hits reports how many requests reached method and path
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// RequestIDs reports how many distinct X-Request-Id values were seen
func (s *Server) RequestIDs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requestIDs)
}

// HistoryLen reports how many exercises userID has registered
func (s *Server) HistoryLen(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[userID])
}

// UserByEmail returns the stored account for email
func (s *Server) UserByEmail(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byEmail[email]
	if !ok {
		return User{}, false
	}
	return acct.User, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
