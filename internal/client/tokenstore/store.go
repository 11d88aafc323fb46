// Package tokenstore persists the single bearer credential of the client.
//
// A Store holds at most one credential. The empty string means "absent":
// Get returns "" when nothing is stored and Set("") clears the value.
// Stores do no validation and no network I/O.
package tokenstore

import (
	"context"
	"sync"
)

// Store is durable (or, for MemoryStore, process-local) storage for the
// credential.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, credential string) error
}

// Clearer is implemented by stores that can compare-and-clear atomically.
type Clearer interface {
	ClearIf(ctx context.Context, expected string) (bool, error)
}

// ClearIf removes the credential only while s still holds expected and
// reports whether it did. Stores that are not a Clearer fall back to a
// read followed by a write.
func ClearIf(ctx context.Context, s Store, expected string) (bool, error) {
	if c, ok := s.(Clearer); ok {
		return c.ClearIf(ctx, expected)
	}
	current, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if current == "" || current != expected {
		return false, nil
	}
	return true, s.Set(ctx, "")
}

// MemoryStore keeps the credential in memory only. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store pre-populated with credential (may be "").
func NewMemoryStore(credential string) *MemoryStore {
	return &MemoryStore{value: credential}
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, nil
}

func (m *MemoryStore) Set(_ context.Context, credential string) error {
	m.mu.Lock()
	m.value = credential
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ClearIf(_ context.Context, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == "" || m.value != expected {
		return false, nil
	}
	m.value = ""
	return true, nil
}
