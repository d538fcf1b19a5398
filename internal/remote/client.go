// Package remote is the remote-API backend: every operation is one request
// against the poetry REST routes, mapped into the canonical model.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"poetryhub/internal/backend"
)

// maxBody bounds any response read into memory, documents included.
const maxBody = 64 << 20

// Client implements backend.Service over HTTP. It never retries.
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute http(s)", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  slog.Default().With("component", "remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ID() backend.ID { return backend.Remote }

func (c *Client) BaseURL() string { return c.base.String() }

// UseToken replaces the bearer token, e.g. after a sign-in. An empty token
// sends anonymous requests.
func (c *Client) UseToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.Join(parts, "/")
	return u.String()
}

// send performs one round trip. Non-2xx responses become tagged errors and
// their bodies are closed; on success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, op, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, backend.Wrap(backend.KindBackendUnreachable, backend.Remote, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", op, "method", method, "url", target, "error", err)
		return nil, &backend.Error{Kind: backend.KindBackendUnreachable, Backend: backend.Remote, Op: op, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, statusError(op, resp.StatusCode, raw)
}

// doJSON sends in (when non-nil) as JSON and decodes the response into out
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return backend.Wrap(backend.KindValidationFailed, backend.Remote, op, err)
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}

	resp, err := c.send(ctx, op, method, target, body, ct)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeBody(op, resp.Body, out)
}

func decodeBody(op string, r io.Reader, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(r, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(r, maxBody)).Decode(out); err != nil {
		return &backend.Error{Kind: backend.KindBackendUnreachable, Backend: backend.Remote, Op: op, Msg: "malformed response", Err: err}
	}
	return nil
}

// statusError maps an unsuccessful status to an error kind.
func statusError(op string, status int, raw []byte) error {
	var body wireError
	_ = json.Unmarshal(raw, &body)
	msg := strings.TrimSpace(body.text())

	var kind backend.Kind
	switch {
	case status == http.StatusNotFound:
		kind = backend.KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = backend.KindValidationFailed
		if op == opSignUp && strings.Contains(strings.ToLower(msg), "exist") {
			kind = backend.KindConflict
		}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = backend.KindUnauthorized
	case status == http.StatusConflict:
		kind = backend.KindConflict
	default:
		kind = backend.KindBackendUnreachable
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", status)
		}
	}
	return &backend.Error{
		Kind:    kind,
		Backend: backend.Remote,
		Op:      op,
		Msg:     msg,
		Err:     &StatusError{Code: status},
	}
}

// StatusError keeps the HTTP status behind a tagged error.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d", e.Code) }

// StatusOf returns the HTTP status behind err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
