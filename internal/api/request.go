package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ibrahzuma/umoja-hardware-system/internal/auth"
	"github.com/ibrahzuma/umoja-hardware-system/internal/version"
)

// Request performs one call and returns the raw JSON body.
// A 2xx response without a body returns nil. body is JSON-encoded when non-nil.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	fullURL := c.URL(endpoint)

	raw, err := c.do(ctx, method, fullURL, body)
	if err != nil {
		c.logger.Error("api request failed",
			"method", method,
			"url", fullURL,
			"error", err,
		)
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, fullURL string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", version.UserAgent())
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		switch {
		case errors.Is(err, auth.ErrNoToken):
			// The server decides whether the call needs one.
			c.logger.Debug("sending request without csrf token", "url", fullURL)
		case err != nil:
			return nil, fmt.Errorf("csrf token: %w", err)
		default:
			req.Header.Set(auth.HeaderName, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, resp.Status, data)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("unmarshal response: invalid JSON body (status %d)", resp.StatusCode)
	}

	return json.RawMessage(data), nil
}

// call performs a request and decodes the body into out when both are present.
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	raw, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil || raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Get performs a GET and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.call(ctx, http.MethodGet, endpoint, nil, out)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.call(ctx, http.MethodPost, endpoint, body, out)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.call(ctx, http.MethodPut, endpoint, body, out)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.call(ctx, http.MethodDelete, endpoint, nil, out)
}
