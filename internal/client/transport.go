// ABOUTME: Request pipeline with credential attachment and the refresh protocol
// ABOUTME: Concurrent authorization failures share one refresh; waiters queue until it settles

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

const maxResponseBody = 10 << 20

// request is a replayable description of an API call
type request struct {
	method string
	path   string
	body   []byte
	auth   bool
}

func newRequest(method, path string, payload any, auth bool) (request, error) {
	r := request{method: method, path: path, auth: auth}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("failed to marshal input: %w", err)
		}
		r.body = body
	}
	return r, nil
}

// call issues a request and decodes a successful body into out
func (c *Client) call(ctx context.Context, method, path string, payload any, auth bool, out any) error {
	r, err := newRequest(method, path, payload, auth)
	if err != nil {
		return err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	return decodeBody(body, out)
}

// sentWith records the credential attached to a request: the access token
// and the epoch of the session it belongs to.
type sentWith struct {
	token string
	epoch uint64
}

// do sends r and returns the body of a 2xx response. An authorization
// failure on an authenticated request is retried once after the credential
// pair has been refreshed.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		resp, sent, err := c.send(ctx, r)
		if err != nil {
			return nil, err
		}

		if attempt == 0 && errors.Is(classify(r, sent, resp), errAuthorizationExpired) {
			drain(resp)
			c.logger.Debug("Authorization rejected", "path", r.path, "error", errAuthorizationExpired)

			if err := c.awaitFreshCredentials(ctx, sent); err != nil {
				return nil, err
			}
			// The retry reads the credential again, so it carries the new pair.
			continue
		}

		return readResponse(resp)
	}
}

// classify returns errAuthorizationExpired when resp rejects the credential
// the request carried. Anything else is left to readResponse.
func classify(r request, sent sentWith, resp *http.Response) error {
	if r.auth && sent.token != "" && resp.StatusCode == http.StatusUnauthorized {
		return errAuthorizationExpired
	}
	return nil
}

// send performs one HTTP exchange. The credential is read at send time and
// returned so a rejection can be matched to the session it came from.
func (c *Client) send(ctx context.Context, r request) (*http.Response, sentWith, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, sentWith{}, c.handleRequestError(ctx, err)
		}
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, sentWith{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	var sent sentWith
	if r.auth {
		sent = c.currentCredential()
		if sent.token != "" {
			req.Header.Set("Authorization", "Bearer "+sent.token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("API request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return nil, sent, c.handleRequestError(ctx, err)
	}

	c.metrics.observeResponse(resp.StatusCode)
	c.logger.Debug("API response", "method", r.method, "path", r.path, "status", resp.StatusCode, "request_id", requestID)
	return resp, sent, nil
}

// awaitFreshCredentials returns once a credential newer than sent is
// installed for the same session. It fails with ErrSessionExpired when the
// session is gone and ErrSessionChanged when another session replaced it.
// At most one refresh runs at a time; callers arriving while it is in flight
// wait on the pending queue.
func (c *Client) awaitFreshCredentials(ctx context.Context, sent sentWith) error {
	for {
		c.mu.Lock()
		switch {
		case c.creds == nil:
			c.mu.Unlock()
			return ErrSessionExpired

		case c.epoch != sent.epoch:
			// Retrying would replay this request under someone else's session.
			c.mu.Unlock()
			return ErrSessionChanged

		case c.creds.AccessToken != sent.token:
			// Already rotated by a refresh after this request went out.
			c.mu.Unlock()
			return nil

		case c.refreshing:
			wait := pendingRequest{done: make(chan error, 1), epoch: sent.epoch}
			c.pending = append(c.pending, wait)
			c.mu.Unlock()
			c.metrics.Queued.Inc()

			select {
			case err := <-wait.done:
				if errors.Is(err, errRefreshRetired) {
					// The refresh belonged to a replaced session; start over for ours.
					continue
				}
				return err
			case <-ctx.Done():
				return c.handleRequestError(ctx, ctx.Err())
			}
		}

		c.refreshing = true
		epoch := c.epoch
		refreshToken := c.creds.RefreshToken
		c.mu.Unlock()

		return c.refresh(ctx, epoch, refreshToken)
	}
}

// refresh exchanges refreshToken for a new pair and settles the pending
// queue exactly once.
func (c *Client) refresh(ctx context.Context, epoch uint64, refreshToken string) error {
	// Settle even if the caller gives up; waiters and the store depend on it.
	ctx = context.WithoutCancel(ctx)

	pair, refreshErr := c.requestRefresh(ctx, refreshToken)

	c.mu.Lock()
	waiters := c.pending
	c.pending = nil
	c.refreshing = false

	if c.epoch != epoch {
		c.mu.Unlock()
		c.metrics.Refreshes.WithLabelValues(RefreshDiscarded).Inc()
		c.logger.Info("Discarding credential refresh for a replaced session")
		for _, w := range waiters {
			if w.epoch == epoch {
				w.done <- ErrSessionChanged
			} else {
				w.done <- errRefreshRetired
			}
		}
		return ErrSessionChanged
	}

	if refreshErr != nil {
		c.creds = nil
		c.epoch++
		c.purgeCatalog()
		c.persist(ctx, "clear", func(pctx context.Context) error { return c.store.Clear(pctx) })
		onExpired := c.onExpired
		c.mu.Unlock()

		c.metrics.Refreshes.WithLabelValues(RefreshFailed).Inc()
		c.logger.Warn("Credential refresh failed, session cleared", "error", refreshErr, "queued", len(waiters))
		if onExpired != nil {
			onExpired()
		}
		release(waiters, ErrSessionExpired)
		return fmt.Errorf("%w: %v", ErrSessionExpired, refreshErr)
	}

	c.persist(ctx, "save", func(pctx context.Context) error { return c.store.SaveCredentials(pctx, pair) })
	c.creds = &pair
	c.mu.Unlock()

	c.metrics.Refreshes.WithLabelValues(RefreshSucceeded).Inc()
	c.logger.Debug("Credentials refreshed", "queued", len(waiters))
	release(waiters, nil)
	return nil
}

// persist runs a credential store write with a bounded deadline. It is
// called with mu held, so a stuck store must not hold every request.
func (c *Client) persist(ctx context.Context, op string, write func(context.Context) error) {
	if c.store == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	defer cancel()

	if err := write(pctx); err != nil {
		c.logger.Warn("Failed to persist credentials", "op", op, "error", err)
	}
}

func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (Credentials, error) {
	var pair Credentials
	err := c.call(ctx, http.MethodPost, "/sessions/refresh-token",
		map[string]string{"refresh_token": refreshToken}, false, &pair)
	if err != nil {
		return Credentials{}, err
	}
	if !pair.Valid() {
		return Credentials{}, fmt.Errorf("%w: refresh response missing tokens", ErrUnknown)
	}
	return pair, nil
}

// pendingRequest is a request parked behind an in-flight refresh
type pendingRequest struct {
	done  chan error
	epoch uint64
}

func release(waiters []pendingRequest, err error) {
	for _, w := range waiters {
		w.done <- err
	}
}

// handleRequestError converts transport failures into the client taxonomy
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrNetworkUnavailable)
	}
	return fmt.Errorf("%w: cannot connect to backend at %s: %v", ErrNetworkUnavailable, c.baseURL, err)
}

func readResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetworkUnavailable, err)
	}
	return body, nil
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid response from backend: %v", ErrUnknown, err)
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
