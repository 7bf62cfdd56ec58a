// Package client is a Go API client for the Contently backend. It keeps
// the session cookies in a jar and transparently recovers from access
// token expiry: a 401 triggers one silent refresh followed by a single
// retry of the original request. When the refresh itself fails the
// session is gone for good and every caller gets ErrSessionExpired.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// refreshPath is the token rotation endpoint. Requests to it are never
// retried -- a 401 there means the refresh token itself is dead.
const refreshPath = "/api/auth/refresh"

// ErrSessionExpired is returned when a request fails with 401 and the
// silent refresh cannot produce a new session. The caller must log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// Client wraps http.Client with cookie-session handling for the API.
// Safe for concurrent use; simultaneous 401s share one refresh.
type Client struct {
	baseURL    string
	httpClient *http.Client

	refreshMu sync.Mutex
}

// New returns a Client for the API at baseURL (no trailing slash).
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Do sends req, refreshing the session and retrying once on 401.
// The request must target the client's API; requests to the refresh
// endpoint pass through untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.URL.Path == refreshPath {
		return resp, nil
	}

	retry, ok := rewind(req)
	if !ok {
		// Streamed body we can't replay; hand back the 401.
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := c.refresh(req.Context()); err != nil {
		return nil, err
	}
	return c.httpClient.Do(retry)
}

// refresh rotates the session cookies. Concurrent callers serialize on
// refreshMu so a burst of 401s costs one refresh, not one each.
func (c *Client) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return ErrSessionExpired
	}
	return nil
}

// rewind clones req with a replayable body. Reports false when the body
// was a one-shot stream.
func rewind(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}

// Get issues a GET against an API path (e.g. "/api/conversations").
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostJSON issues a POST with a JSON body against an API path.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, payload)
}

// PutJSON issues a PUT with a JSON body against an API path.
func (c *Client) PutJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, payload)
}

// Delete issues a DELETE against an API path.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}
