package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultTimeout = 15 * time.Second

// Client performs JSON calls against the REST API.
type Client struct {
	baseURL string
	store   tokenstore.Store
	http    *http.Client
	base    http.RoundTripper
	timeout time.Duration
	log     logging.Logger
	nav     Navigator
	metrics *metrics

	// mu serializes credential writes with the 401 compare-and-clear.
	mu    sync.Mutex
	hooks []func(ctx context.Context, credential string)
}

type Option func(*Client)

// WithTransport replaces the innermost transport (http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.nav = n }
}

// WithRegisterer enables request metrics registered in reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// New builds a client for baseURL, e.g. "http://127.0.0.1:8000/api".
func New(baseURL string, store tokenstore.Store, opts ...Option) (*Client, error) {

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}
	if store == nil {
		return nil, errors.New("token store is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		base:    http.DefaultTransport,
		timeout: DefaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var rt http.RoundTripper = c.base
	if c.metrics != nil {
		rt = c.metrics.transport(rt)
	}
	rt = c.authTransport(rt)
	rt = requestIDTransport(rt)

	c.http = &http.Client{Transport: rt, Timeout: c.timeout}

	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetNavigator installs the navigator driven by 401 responses.
func (c *Client) SetNavigator(n Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nav = n
}

// OnUnauthorized registers fn to run after a 401 cleared credential.
func (c *Client) OnUnauthorized(fn func(ctx context.Context, credential string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do sends in as a JSON body (when non-nil) and decodes the response into
// out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			err = fmt.Errorf("encode %s %s request: %w", method, path, err)
			c.logFailure(ctx, method, path, "", err)
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		err = fmt.Errorf("build %s %s request: %w", method, path, err)
		c.logFailure(ctx, method, path, "", err)
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := ensureRequestID(req)

	resp, err := c.http.Do(req)
	if err != nil {
		err = c.transportError(ctx, method, path, err)
		c.logFailure(ctx, method, path, requestID, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := newAPIError(resp.StatusCode, raw)
		c.logFailure(ctx, method, path, requestID, apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("decode %s %s response: %w", method, path, err)
		c.logFailure(ctx, method, path, requestID, err)
		return err
	}

	return nil
}

func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	switch {
	case errors.Is(err, errCredentialStore):
		return fmt.Errorf("%s %s: %w", method, path, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
	default:
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
}

func (c *Client) logFailure(ctx context.Context, method, path, requestID string, err error) {
	args := []any{
		"kind", string(Classify(err)),
		"method", method,
		"path", path,
		"error", err,
	}
	if status := StatusCode(err); status != 0 {
		args = append(args, "status", status)
	}
	if requestID != "" {
		args = append(args, common.RequestIDLogKey, requestID)
	}
	c.log.Warn(ctx, "api request failed", args...)
}
