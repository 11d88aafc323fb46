// Package services contains the application services of the FinTrack client.
// Each service is a thin, typed facade over the REST API; the
// authentication service additionally persists the credential it obtains.
package services

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
)

// API is the subset of *client.Client the services need.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
}

var _ API = (*client.Client)(nil)

// Message returns the server's human-readable explanation carried by err,
// or fallback when there is none (transport failures, local errors).
func Message(err error, fallback string) string {
	detail := client.Detail(err)
	if detail == "" {
		return fallback
	}
	if !strings.HasPrefix(detail, "[") {
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal([]byte(detail), &items) != nil {
		return detail
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Msg != "" {
			msgs = append(msgs, it.Msg)
		}
	}
	if len(msgs) == 0 {
		return fallback
	}
	return strings.Join(msgs, "; ")
}
