package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ibrahzuma/umoja-hardware-system/internal/auth"
)

// DefaultBasePath is prepended to endpoints that do not already carry it.
const DefaultBasePath = "/api"

// Client provides access to the REST API.
type Client struct {
	origin     string
	basePath   string
	tokens     auth.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Request Client for origin (e.g. https://shop.example.com).
// The anti-forgery token is supplied by tokens on every request.
func NewClient(origin string, tokens auth.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		origin:   strings.TrimRight(origin, "/"),
		basePath: DefaultBasePath,
		tokens:   tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithBasePath sets the path prefix for endpoints.
func WithBasePath(p string) ClientOption {
	return func(c *Client) {
		c.basePath = strings.TrimRight(p, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// URL returns the absolute URL an endpoint resolves to.
func (c *Client) URL(endpoint string) string {
	if c.basePath != "" && !strings.HasPrefix(endpoint, c.basePath) {
		endpoint = c.basePath + endpoint
	}
	return c.origin + endpoint
}
