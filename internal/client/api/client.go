// Package api is the request layer between the session store and the loyalty
// REST server. It holds no state besides its configuration: the bearer token
// is pulled from a TokenFunc on every request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const maxResponseBytes = 8 << 20

// TokenFunc returns the current bearer token, or "" when logged out.
type TokenFunc func() string

// TokenHolder is an atomically updated token whose Get method can be handed
// to New as the TokenFunc.
type TokenHolder struct {
	v atomic.Value
}

func (h *TokenHolder) Set(token string) { h.v.Store(token) }

func (h *TokenHolder) Get() string {
	s, _ := h.v.Load().(string)
	return s
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	log     *logrus.Entry
}

// New creates a Client. A zero Timeout defaults to 15 seconds; a nil logger
// discards output.
func New(cfg Config, token TokenFunc, logger *logrus.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if token == nil {
		token = func() string { return "" }
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		token:   token,
		log:     logger.WithField("component", "api"),
	}
}

// do performs one request. body and out may be nil. When auth is set the
// current token is attached as a bearer credential if one is present.
func (c *Client) do(ctx context.Context, op, method, path string, auth bool, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if tok := strings.TrimSpace(c.token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"op": op, "path": path}).WithError(err).Debug("request failed")
		return &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: ErrNetwork, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.log.WithFields(logrus.Fields{
		"op":       op,
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("request done")

	if resp.StatusCode >= 300 {
		return classify(op, resp.StatusCode, errorMessage(resp.StatusCode, data))
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: ErrServer, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage pulls the server's message out of an error body, falling back
// to the status text.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "detail", "message"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 256 && !strings.HasPrefix(s, "<") {
		return s
	}
	return http.StatusText(status)
}
