// ABOUTME: HTTP client for the gymtrack fitness API
// ABOUTME: Owns the in-memory credential pair and the options that shape outbound requests

package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gymtrack/gymtrack/internal/cache"
)

// defaultPersistTimeout bounds each credential store write made by the
// refresh protocol
const defaultPersistTimeout = 5 * time.Second

// CredentialStore persists rotated credentials and wipes them when a refresh
// fails. The session store implements it.
type CredentialStore interface {
	SaveCredentials(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// Client is the API client for the gymtrack backend. It attaches the current
// access credential to authenticated requests and runs the refresh protocol
// when the server rejects it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *Metrics
	store      CredentialStore
	catalog    *cache.Cache[[]byte]
	logger     *slog.Logger

	// Guarded by mu. epoch changes whenever the credential pair is replaced
	// or cleared from outside the refresh protocol.
	mu         sync.Mutex
	creds      *Credentials
	epoch      uint64
	refreshing bool
	pending    []pendingRequest
	onExpired  func()

	persistTimeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit throttles outbound requests to rps with the given burst.
// rps <= 0 leaves requests unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records request and refresh counters into m
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCredentialStore persists refreshed credentials into s
func WithCredentialStore(s CredentialStore) Option {
	return func(c *Client) { c.store = s }
}

// WithCatalogCache caches exercise catalog reads for ttl. ttl <= 0 disables it.
func WithCatalogCache(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			return
		}
		c.catalog = cache.New[[]byte](ttl)
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:         slog.Default(),
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetCredentials installs a new credential pair, replacing any previous one.
// A refresh in flight for the previous pair is discarded when it completes.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.creds = &creds
	c.epoch++
	c.purgeCatalog()
}

// ClearCredentials drops the in-memory credential pair
func (c *Client) ClearCredentials() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.creds = nil
	c.epoch++
	c.purgeCatalog()
}

// Credentials returns the current pair, if any
func (c *Client) Credentials() (Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds == nil {
		return Credentials{}, false
	}
	return *c.creds, true
}

// OnSessionExpired registers fn to run after a failed refresh has cleared the
// session. fn runs without any client lock held.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onExpired = fn
}

// Close releases idle connections and stops the catalog cache
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	if c.catalog != nil {
		c.catalog.Close()
	}
}

func (c *Client) currentCredential() sentWith {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds == nil {
		return sentWith{epoch: c.epoch}
	}
	return sentWith{token: c.creds.AccessToken, epoch: c.epoch}
}

// purgeCatalog must be called with mu held
func (c *Client) purgeCatalog() {
	if c.catalog != nil {
		c.catalog.Purge()
	}
}
