package cromwell

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

const defaultUserAgent = "cromwell-go"

// Client issues requests against a workflow engine's REST API. The zero
// configuration talks to DefaultBaseURL (or CROMWELL_BASE when set) using
// http.DefaultClient semantics with a fresh transport.
type Client struct {
	base      string
	httpc     *http.Client
	logger    *slog.Logger
	userAgent string
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL pins the engine base URL, bypassing CROMWELL_BASE resolution.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = u }
}

// WithHTTPClient replaces the underlying HTTP client. Connection pooling,
// TLS and proxy behavior are owned by the supplied client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the structured logger. By default the client is silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets a default per-request timeout. Zero means no timeout
// beyond what the caller's context imposes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client. With no options the base URL is resolved from the
// environment lazily on every request.
func New(opts ...Option) *Client {
	c := &Client{
		httpc:     &http.Client{},
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// baseURL returns the configured base URL, consulting the environment on
// every call when none was pinned. No caching, per the engine contract.
func (c *Client) baseURL() string {
	if c.base != "" {
		return c.base
	}
	return ResolveBaseURL()
}

// newRequestID mints a ULID used as the X-Request-Id header value.
func newRequestID() string {
	return ulid.Make().String()
}
