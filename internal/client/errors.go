// ABOUTME: Error taxonomy produced by the API client
// ABOUTME: Classifies responses into server rejections, session expiry, network and unknown failures

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 64 << 10

var (
	// ErrSessionExpired means the refresh credential was rejected. The
	// session has been cleared and the user must sign in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionChanged means the session was replaced or signed out while
	// the request was waiting on a refresh. The request was not retried.
	ErrSessionChanged = errors.New("session changed during request")

	// ErrNetworkUnavailable means the API could not be reached
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrUnknown covers any failure without a usable server message
	ErrUnknown = errors.New("unexpected API failure")

	// errAuthorizationExpired drives the refresh protocol and never leaves
	// this package.
	errAuthorizationExpired = errors.New("authorization expired")

	// errRefreshRetired tells a queued request that the refresh it waited on
	// belonged to a replaced session, so it must look again.
	errRefreshRetired = errors.New("refresh retired")
)

// SessionExpiredMessage is shown when a forced sign-out happens
const SessionExpiredMessage = "Your session has expired. Please sign in again."

// ServerRejectedError carries the human-readable message from an
// application error response.
type ServerRejectedError struct {
	Status  int
	Message string
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
}

// errorResponse is the API's application-error body
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Message returns the text a screen should display for err: the server's
// message when there is one, a sign-in prompt for an expired session, and
// fallback for everything else.
func Message(err error, fallback string) string {
	var rejected *ServerRejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	if errors.Is(err, ErrSessionExpired) {
		return SessionExpiredMessage
	}
	return fallback
}

// handleErrorResponse parses API error responses
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &ServerRejectedError{Status: resp.StatusCode, Message: errResp.Message}
	}
	return fmt.Errorf("%w: backend returned status %d", ErrUnknown, resp.StatusCode)
}
