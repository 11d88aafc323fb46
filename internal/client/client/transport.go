package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/google/uuid"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type exchangeKey struct{}

// WithCredentialExchange marks ctx as an authentication attempt. A 401 on
// such a request means "bad credentials" and does not clear the stored one.
func WithCredentialExchange(ctx context.Context) context.Context {
	return context.WithValue(ctx, exchangeKey{}, true)
}

func isCredentialExchange(ctx context.Context) bool {
	v, _ := ctx.Value(exchangeKey{}).(bool)
	return v
}

func ensureRequestID(r *http.Request) string {
	id := r.Header.Get(common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(common.RequestIDHeaderName, id)
	}
	return id
}

func requestIDTransport(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(common.RequestIDHeaderName) == "" {
			r = r.Clone(r.Context())
			ensureRequestID(r)
		}
		return next.RoundTrip(r)
	})
}

// authTransport attaches the stored credential and runs the unauthorized
// handling for responses to requests that carried it.
func (c *Client) authTransport(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {

		ctx := r.Context()

		credential, err := c.store.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: read credential: %w", errCredentialStore, err)
		}

		if credential != "" {
			r = r.Clone(ctx)
			r.Header.Set(common.AuthorizationHeaderName, common.BearerValue(credential))
		}

		resp, err := next.RoundTrip(r)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && !isCredentialExchange(ctx) {
			c.handleUnauthorized(ctx, credential)
		}

		return resp, nil
	})
}
