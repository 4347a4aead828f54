// ABOUTME: Tests for the gymtrack API client
// ABOUTME: Uses the in-process fake API and raw httptest servers for edge cases

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gymtrack/gymtrack/internal/apitest"
)

func newTestClient(t *testing.T, baseURL string, opts ...Option) (*Client, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	c := New(baseURL, append([]Option{WithMetrics(m)}, opts...)...)
	t.Cleanup(c.Close)
	return c, m
}

// signedIn installs a fresh credential pair for a new account
func signedIn(t *testing.T, srv *apitest.Server, c *Client) apitest.User {
	t.Helper()
	u := srv.AddUser("Ana", "a@b.com", "secret1")
	access, refresh := srv.IssueTokens(u.ID)
	c.SetCredentials(Credentials{AccessToken: access, RefreshToken: refresh})
	return u
}

func TestSignIn_Success(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ana", "a@b.com", "secret1")
	c, _ := newTestClient(t, srv.URL)

	result, err := c.SignIn(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.User.ID == "" {
		t.Error("expected non-empty user id")
	}
	if result.User.Name != "Ana" {
		t.Errorf("expected name Ana, got %s", result.User.Name)
	}
	if !result.Credentials().Valid() {
		t.Errorf("expected token pair, got %+v", result.Credentials())
	}
	if _, ok := c.Credentials(); ok {
		t.Error("SignIn must not install credentials")
	}
}

func TestSignIn_WrongPasswordIsServerRejected(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ana", "a@b.com", "secret1")
	c, _ := newTestClient(t, srv.URL)

	_, err := c.SignIn(context.Background(), "a@b.com", "wrong")

	var rejected *ServerRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ServerRejectedError, got %v", err)
	}
	if rejected.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rejected.Status)
	}
	if got := Message(err, "fallback"); got != "Incorrect email or password." {
		t.Errorf("unexpected message %q", got)
	}
	if srv.RefreshCalls() != 0 {
		t.Errorf("sign-in rejection must not refresh, got %d calls", srv.RefreshCalls())
	}
}

func TestSignUp_CreatesAccount(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)

	user, err := c.SignUp(context.Background(), "Bia", "bia@example.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "bia@example.com" {
		t.Errorf("expected created email, got %q", user.Email)
	}
	if _, ok := srv.UserByEmail("bia@example.com"); !ok {
		t.Error("expected account on server")
	}

	_, err = c.SignUp(context.Background(), "Bia", "bia@example.com", "secret1")
	if got := Message(err, "fallback"); got != "This email is already in use." {
		t.Errorf("expected duplicate rejection, got %q (%v)", got, err)
	}
}

func TestUpdateProfile_ReturnsAcceptedFields(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)

	name := "Ana Maria"
	accepted, err := c.UpdateProfile(context.Background(), ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Name == nil || *accepted.Name != name {
		t.Errorf("expected accepted name %q, got %v", name, accepted.Name)
	}
	if accepted.Avatar != nil {
		t.Errorf("expected no avatar change, got %q", *accepted.Avatar)
	}
}

func TestUpdateProfile_NoContentAcceptsRequestedFields(t *testing.T) {
	srv := apitest.New(t)
	srv.RespondNoContent(true)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)

	avatar := "avatar-key.png"
	accepted, err := c.UpdateProfile(context.Background(), ProfileUpdate{Avatar: &avatar})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Avatar == nil || *accepted.Avatar != avatar {
		t.Errorf("expected requested avatar, got %v", accepted.Avatar)
	}
}

func TestUpdateProfile_PasswordNeedsOldPassword(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)

	_, err := c.UpdateProfile(context.Background(), ProfileUpdate{Password: "newsecret"})

	var rejected *ServerRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ServerRejectedError, got %v", err)
	}
	if rejected.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rejected.Status)
	}
}

func TestCatalog_ListsAndDetails(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)
	ctx := context.Background()

	groups, err := c.Groups(ctx)
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) == 0 || groups[0] != "back" {
		t.Errorf("expected sorted groups starting with back, got %v", groups)
	}

	exercises, err := c.ExercisesByGroup(ctx, "biceps")
	if err != nil {
		t.Fatalf("ExercisesByGroup: %v", err)
	}
	if len(exercises) != 2 {
		t.Errorf("expected 2 biceps exercises, got %d", len(exercises))
	}

	ex, err := c.Exercise(ctx, exercises[0].ID)
	if err != nil {
		t.Fatalf("Exercise: %v", err)
	}
	if ex.Name != exercises[0].Name || ex.Series == 0 {
		t.Errorf("unexpected detail %+v", ex)
	}

	_, err = c.Exercise(ctx, "missing")
	if got := Message(err, "Unable to load exercise details"); got != "Exercise not found." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestCatalog_CachedUntilIdentityChanges(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL, WithCatalogCache(time.Minute))
	u := signedIn(t, srv, c)
	ctx := context.Background()

	for range 3 {
		if _, err := c.Groups(ctx); err != nil {
			t.Fatalf("Groups: %v", err)
		}
	}
	if hits := srv.Hits(http.MethodGet, "/groups"); hits != 1 {
		t.Errorf("expected 1 backend hit, got %d", hits)
	}

	access, refresh := srv.IssueTokens(u.ID)
	c.SetCredentials(Credentials{AccessToken: access, RefreshToken: refresh})

	if _, err := c.Groups(ctx); err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if hits := srv.Hits(http.MethodGet, "/groups"); hits != 2 {
		t.Errorf("expected cache purge on new credentials, got %d hits", hits)
	}
}

func TestHistory_RegisterAndList(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	u := signedIn(t, srv, c)
	ctx := context.Background()

	for _, id := range []string{"1", "3"} {
		if err := c.RegisterHistory(ctx, id); err != nil {
			t.Fatalf("RegisterHistory(%s): %v", id, err)
		}
	}
	if n := srv.HistoryLen(u.ID); n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}

	days, err := c.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(days) != 1 || len(days[0].Data) != 2 {
		t.Fatalf("expected one day with two entries, got %+v", days)
	}
	if days[0].Data[0].Name != "Barbell curl" {
		t.Errorf("expected newest entry first, got %q", days[0].Data[0].Name)
	}

	err = c.RegisterHistory(ctx, "missing")
	if got := Message(err, "Unable to register exercise."); got != "Exercise not found." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRequests_CarryRequestID(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)

	for range 3 {
		if _, err := c.Groups(context.Background()); err != nil {
			t.Fatalf("Groups: %v", err)
		}
	}
	if n := srv.RequestIDs(); n != 3 {
		t.Errorf("expected 3 distinct request ids, got %d", n)
	}
}

func TestErrors_Classification(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)
	signedIn(t, srv, c)
	ctx := context.Background()

	srv.FailNext(http.MethodGet, "/history", http.StatusInternalServerError, "Database offline.")
	_, err := c.History(ctx)
	var rejected *ServerRejectedError
	if !errors.As(err, &rejected) || rejected.Message != "Database offline." {
		t.Errorf("expected ServerRejectedError with message, got %v", err)
	}

	srv.FailNext(http.MethodGet, "/history", http.StatusBadGateway, "")
	_, err = c.History(ctx)
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
	if got := Message(err, "Unable to load history"); got != "Unable to load history" {
		t.Errorf("expected fallback message, got %q", got)
	}
}

func TestErrors_NetworkUnavailable(t *testing.T) {
	c, _ := newTestClient(t, "http://localhost:99999")

	_, err := c.SignIn(context.Background(), "a@b.com", "secret1")
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Errorf("expected ErrNetworkUnavailable, got %v", err)
	}
}

func TestErrors_ContextCanceled(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SignIn(ctx, "a@b.com", "secret1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErrors_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.SignIn(context.Background(), "a@b.com", "secret1")
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestSignIn_IncompleteResponseIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{"id": "1"}})
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.SignIn(context.Background(), "a@b.com", "secret1")
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestRateLimit_WaitHonoursDeadline(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.URL, WithRateLimit(0.01, 1))
	signedIn(t, srv, c)

	if _, err := c.Groups(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Groups(ctx)
	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Errorf("expected throttled request to fail as unavailable, got %v", err)
	}
	if hits := srv.Hits(http.MethodGet, "/groups"); hits != 1 {
		t.Errorf("throttled request must not reach the server, got %d hits", hits)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &ServerRejectedError{Status: 400, Message: "Name is required."}, "Name is required."},
		{"wrapped server message", errors.Join(errors.New("ctx"), &ServerRejectedError{Status: 400, Message: "x"}), "x"},
		{"session expired", ErrSessionExpired, SessionExpiredMessage},
		{"network", ErrNetworkUnavailable, "fallback"},
		{"unknown", ErrUnknown, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err, "fallback"); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	srv := apitest.New(t)
	u := srv.AddUser("Ana", "a@b.com", "secret1")
	access, _ := srv.IssueTokens(u.ID)

	exp, ok := TokenExpiry(access)
	if !ok {
		t.Fatal("expected readable expiry")
	}
	if d := time.Until(exp); d <= 0 || d > apitest.AccessTokenTTL {
		t.Errorf("expiry %v outside issued TTL", d)
	}

	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("expected no expiry for opaque token")
	}
}
