// Package auth provides anti-forgery (CSRF) token sources for the Request Client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// DefaultCookieName is the cookie the server stores the anti-forgery token in.
const DefaultCookieName = "csrftoken"

// HeaderName is the request header carrying the token.
const HeaderName = "X-CSRFToken"

// ErrNoToken is returned when no token is available.
var ErrNoToken = errors.New("no csrf token available")

// TokenSource supplies the anti-forgery token sent with every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

type staticToken string

// Static returns a TokenSource that always yields token.
func Static(token string) TokenSource {
	return staticToken(token)
}

func (s staticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// LoadToken reads a token from a file, trimming surrounding whitespace.
func LoadToken(path string) (TokenSource, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, fmt.Errorf("token file %s: %w", path, ErrNoToken)
	}

	return Static(token), nil
}

// cookieToken reads the token from a cookie jar on every call, so a
// rotated cookie is picked up without rebuilding the client.
type cookieToken struct {
	jar  http.CookieJar
	url  *url.URL
	name string
}

// FromCookieJar returns a TokenSource reading cookie name for origin from jar.
// An empty name means DefaultCookieName.
func FromCookieJar(jar http.CookieJar, origin, name string) (TokenSource, error) {
	if jar == nil {
		return nil, fmt.Errorf("cookie jar is required")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin %q has no host", origin)
	}

	if name == "" {
		name = DefaultCookieName
	}

	return &cookieToken{jar: jar, url: u, name: name}, nil
}

func (c *cookieToken) Token(context.Context) (string, error) {
	for _, cookie := range c.jar.Cookies(c.url) {
		if cookie.Name == c.name && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("cookie %q: %w", c.name, ErrNoToken)
}
