// Package remote talks to the sketch store and asset catalog services over
// HTTP and fetches asset images.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eyedentify/sketchpad"
)

// DefaultTimeout is the HTTP timeout used when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// StatusError is a non-2xx response. Detail is the server's "detail" field
// when the body carried one.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Is maps 404 to sketchpad.ErrRecordNotFound.
func (e *StatusError) Is(target error) bool {
	return target == sketchpad.ErrRecordNotFound && e.Code == http.StatusNotFound
}

// Options configures a Client.
type Options struct {
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is the shared HTTP plumbing of the service clients.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      opts.Token,
		httpClient: hc,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Healthcheck checks if the API is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and decodes a JSON response into out (which may be nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// doJSON sends v as a JSON body.
func (c *Client) doJSON(ctx context.Context, method, path string, v, out any) error {
	var body io.Reader
	contentType := ""
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	se := &StatusError{Code: resp.StatusCode}
	if json.Unmarshal(data, &body) == nil {
		var s string
		switch {
		case len(body.Detail) > 0 && json.Unmarshal(body.Detail, &s) == nil:
			se.Detail = s
		case len(body.Detail) > 0:
			se.Detail = string(body.Detail)
		default:
			se.Detail = body.Error
		}
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
