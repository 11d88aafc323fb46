package client

import (
	"context"

	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
)

// handleUnauthorized clears the store only while it still holds sent, so
// only the first of several concurrent 401s for one credential acts.
func (c *Client) handleUnauthorized(ctx context.Context, sent string) {

	if sent == "" {
		return
	}

	c.mu.Lock()
	cleared, err := tokenstore.ClearIf(ctx, c.store, sent)
	if err != nil {
		c.mu.Unlock()
		c.log.Error(ctx, "clear credential after 401", "error", err)
		return
	}
	if !cleared {
		c.mu.Unlock()
		return
	}
	nav := c.nav
	hooks := append([]func(context.Context, string){}, c.hooks...)
	c.mu.Unlock()

	c.log.Info(ctx, "credential rejected by server, signed out")

	for _, fn := range hooks {
		fn(ctx, sent)
	}

	if nav != nil && !IsPublicView(nav.Current()) {
		nav.Navigate(LoginView)
	}
}

// Store returns a view of the token store whose writes are serialized with
// the 401 compare-and-clear. Services and the session write through it.
func (c *Client) Store() tokenstore.Store {
	return guardedStore{c: c}
}

type guardedStore struct {
	c *Client
}

func (g guardedStore) Get(ctx context.Context) (string, error) {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()
	return g.c.store.Get(ctx)
}

func (g guardedStore) Set(ctx context.Context, credential string) error {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()
	return g.c.store.Set(ctx, credential)
}

func (g guardedStore) ClearIf(ctx context.Context, expected string) (bool, error) {
	g.c.mu.Lock()
	defer g.c.mu.Unlock()
	return tokenstore.ClearIf(ctx, g.c.store, expected)
}
