// Package backend is the HTTP client for the sandbox file API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/rs/zerolog/log"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	IsDirectory bool   `json:"isDirectory"`
	Path        string `json:"path"`
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the file API. Requests are never retried; a failed call
// is reported to the caller, which decides whether to try again.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns the immediate children of dir.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry
	if err := c.do(ctx, "list", http.MethodGet, "/api/list", url.Values{"path": {dir}}, nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

type readResponse struct {
	Content string `json:"content"`
}

// Read returns the content of a file.
func (c *Client) Read(ctx context.Context, path string) (string, error) {
	var resp readResponse
	if err := c.do(ctx, "read", http.MethodGet, "/api/read", url.Values{"path": {path}}, nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

type updateRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Update replaces the content of a file.
func (c *Client) Update(ctx context.Context, path, content string) error {
	return c.do(ctx, "update", http.MethodPost, "/api/update", nil, updateRequest{Path: path, Content: content}, nil)
}

type pathRequest struct {
	Path string `json:"path"`
}

// CreateFile creates an empty file.
func (c *Client) CreateFile(ctx context.Context, path string) error {
	return c.do(ctx, "createFile", http.MethodPost, "/api/createFile", nil, pathRequest{Path: path}, nil)
}

// CreateFolder creates a directory.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	return c.do(ctx, "createFolder", http.MethodPost, "/api/createFolder", nil, pathRequest{Path: path}, nil)
}

type renameRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// Rename moves oldPath to newPath.
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) error {
	return c.do(ctx, "rename", http.MethodPost, "/api/rename", nil, renameRequest{OldPath: oldPath, NewPath: newPath}, nil)
}

// Delete removes a file or directory.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/api/delete", url.Values{"path": {path}}, nil, nil)
}

// do performs one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON response.
func (c *Client) do(ctx context.Context, op, method, endpoint string, query url.Values, body, out any) error {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapPrefix(err, op, 0)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.WrapPrefix(err, op, 0)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Msg("backend request failed")
		return errors.WrapPrefix(err, op, 0)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapPrefix(err, op+": decode response", 0)
	}
	return nil
}
