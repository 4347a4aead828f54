// ABOUTME: Identity handlers of the fake API and bearer-token enforcement
// ABOUTME: Refresh tokens rotate on use; replaying one is rejected

package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgTokenExpired = "token.expired"
	msgTokenInvalid = "token.invalid"
)

type ctxKey struct{}

type accessClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// AddUser registers an account directly, bypassing the sign-up endpoint
func (s *Server) AddUser(name, email, password string) User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hashing password: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(name, email, hash)
}

func (s *Server) addAccountLocked(name, email string, hash []byte) User {
	acct := &account{
		User: User{ID: uuid.NewString(), Name: name, Email: email},
		hash: hash,
	}
	s.byEmail[email] = acct
	s.byID[acct.ID] = acct
	return acct.User
}

// IssueTokens mints a credential pair for userID as a sign-in would
func (s *Server) IssueTokens(userID string) (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.issueLocked(userID)
	if err != nil {
		panic(fmt.Sprintf("apitest: issuing tokens: %v", err))
	}
	return pair.Token, pair.RefreshToken
}

func (s *Server) issueLocked(userID string) (tokenPair, error) {
	now := time.Now()
	claims := accessClaims{
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return tokenPair{}, err
	}

	refresh := uuid.NewString()
	s.refreshTokens[refresh] = userID
	return tokenPair{Token: access, RefreshToken: refresh}, nil
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	acct, ok := s.byEmail[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeError(w, "Incorrect email or password.", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	pair, err := s.issueLocked(acct.ID)
	user := acct.User
	s.mu.Unlock()
	if err != nil {
		writeError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"token":         pair.Token,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		writeError(w, "Name, email and password are required.", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, "Invalid email.", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[req.Email]; exists {
		writeError(w, "This email is already in use.", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, s.addAccountLocked(req.Name, req.Email, hash))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.refreshCalls++
	hold := s.hold
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeError(w, msgTokenInvalid, http.StatusUnauthorized)
		return
	}
	delete(s.refreshTokens, req.RefreshToken)

	pair, err := s.issueLocked(userID)
	if err != nil {
		writeError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Avatar      *string `json:"avatar"`
		Password    string  `json:"password"`
		OldPassword string  `json:"old_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[userFromContext(r.Context())]
	if !ok {
		writeError(w, "User not found.", http.StatusNotFound)
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, "Name is required.", http.StatusBadRequest)
		return
	}

	var hash []byte
	if req.Password != "" {
		if req.OldPassword == "" {
			writeError(w, "You need to provide the old password to set a new one.", http.StatusBadRequest)
			return
		}
		if bcrypt.CompareHashAndPassword(acct.hash, []byte(req.OldPassword)) != nil {
			writeError(w, "Old password does not match.", http.StatusBadRequest)
			return
		}
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost); err != nil {
			writeError(w, "Failed to update password", http.StatusInternalServerError)
			return
		}
	}

	if req.Name != nil {
		acct.Name = *req.Name
	}
	if req.Avatar != nil {
		acct.Avatar = *req.Avatar
	}
	if hash != nil {
		acct.hash = hash
	}

	if s.noContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"name": req.Name, "avatar": req.Avatar})
}

// requireAuth rejects requests without a current access token
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, msgTokenInvalid, http.StatusUnauthorized)
			return
		}

		var claims accessClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, msgTokenExpired, http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		current := s.generation
		_, known := s.byID[claims.Subject]
		s.mu.Unlock()

		if claims.Generation < current {
			writeError(w, msgTokenExpired, http.StatusUnauthorized)
			return
		}
		if !known {
			writeError(w, msgTokenInvalid, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Subject)))
	})
}

func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
