// Package client talks to the drawings REST API.
package client

import (
	"bytes"
	"context"
	"drawboard-server/core"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("drawings api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("drawings api: %d %s", e.Status, e.Message)
}

type Option func(*Client)

// WithHTTPClient sets the client used for requests. A nil client selects the
// default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout applies to a copy of the HTTP client; the one passed to
// WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.hasTimeout = true
	}
}

type Client struct {
	base *url.URL
	http *http.Client

	timeout    time.Duration
	hasTimeout bool
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:3002/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{base: u}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.hasTimeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

func (c *Client) List(ctx context.Context) ([]*core.Drawing, error) {
	var drawings []*core.Drawing
	if err := c.do(ctx, http.MethodGet, "/drawings", nil, &drawings); err != nil {
		return nil, err
	}
	if drawings == nil {
		drawings = []*core.Drawing{}
	}
	return drawings, nil
}

func (c *Client) Insert(ctx context.Context, imageData string) (string, error) {
	var resp struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
	}
	req := struct {
		ImageData string `json:"imageData"`
	}{imageData}

	if err := c.do(ctx, http.MethodPost, "/drawings", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/drawings/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
