package identity

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultRetryBackoff is the base delay between retried requests.
const DefaultRetryBackoff = 250 * time.Millisecond

const defaultUserAgent = "huddle-identity/1"

// Client reads users from the identity provider's backend API.
type Client struct {
	baseURL    string
	secretKey  string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the provider API rooted at baseURL,
// authenticating with the backend secretKey.
func NewClient(baseURL, secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		secretKey:    secretKey,
		userAgent:    defaultUserAgent,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient swaps in hc. Apply before WithTimeout if both are used.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each individual request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries retries 429 and 5xx responses up to max times, doubling backoff each time.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}
