// Package api talks to the remote image-library service.
//
// The queue treats this package as the suspension point: every call blocks
// until the server answers or the client timeout fires, and either outcome
// comes back as a plain error. Auth and tenancy are header concerns handled
// here so the queue never sees them.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/library"
)

// Client is the image-library REST client.
type Client struct {
	baseURL  string
	tenantID string
	token    string
	client   *http.Client
}

// NewClient creates a client for the service at baseURL acting as tenantID.
// The client timeout is the only timeout commands get.
func NewClient(baseURL, tenantID, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		tenantID: tenantID,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx response, kept structured so the failed panel
// can show what the server said.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// SetRating sets an image's rating.
func (c *Client) SetRating(ctx context.Context, imageID string, rating int) error {
	body := map[string]int{"rating": rating}
	return c.do(ctx, http.MethodPut, "/api/images/"+imageID+"/rating", body, nil)
}

// ApplyPermatags applies a batch of tag deltas in one request. The server
// applies the batch transactionally; a partial application is reported as a
// failure and the whole command stays retryable.
func (c *Client) ApplyPermatags(ctx context.Context, ops []command.TagOperation) error {
	body := map[string]any{"operations": ops}
	return c.do(ctx, http.MethodPost, "/api/permatags", body, nil)
}

// AddToList adds an image to a curated list.
func (c *Client) AddToList(ctx context.Context, listID, imageID string) error {
	body := map[string]string{"image_id": imageID}
	return c.do(ctx, http.MethodPost, "/api/lists/"+listID+"/images", body, nil)
}

// RemoveFromList removes an image from a curated list.
func (c *Client) RemoveFromList(ctx context.Context, listID, imageID string) error {
	return c.do(ctx, http.MethodDelete, "/api/lists/"+listID+"/images/"+imageID, nil, nil)
}

// ListImages fetches the full library view.
func (c *Client) ListImages(ctx context.Context) ([]library.Image, error) {
	var out struct {
		Images []library.Image `json:"images"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/images", nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// Stats fetches the server-side counters.
func (c *Client) Stats(ctx context.Context) (library.Stats, error) {
	var out library.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return library.Stats{}, err
	}
	return out, nil
}

// do sends one request with the standard headers and decodes the response
// into out when non-nil. Every mutating request carries a fresh idempotency
// key so a user-triggered retry after an ambiguous failure cannot
// double-apply on a server that honors the header.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", c.tenantID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: readServerMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readServerMessage pulls the error text out of a failure body, tolerating
// servers that answer with plain text.
func readServerMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(data, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(data)
}
