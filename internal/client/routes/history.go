package routes

import (
	"sync"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
)

// History is an in-memory navigator. Navigate replaces the current entry
// when it is the same path, so repeated redirects do not pile up.
type History struct {
	mu        sync.Mutex
	entries   []string
	redirects int
}

var _ client.Navigator = (*History)(nil)

func NewHistory(start string) *History {
	return &History{entries: []string{start}}
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

func (h *History) Navigate(to string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redirects++
	if h.entries[len(h.entries)-1] == to {
		return
	}
	h.entries = append(h.entries, to)
}

// Back returns to the previous entry and reports whether there was one.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 1 {
		return false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return true
}

// Redirects counts Navigate calls.
func (h *History) Redirects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.redirects
}
