package session

import (
	"sync"
	"time"

	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultHistorySize is the number of results kept per session.
const DefaultHistorySize = 200

// Entry is one successful translation of the session.
type Entry struct {
	Time    time.Time
	Request translation.Request
	Result  translation.Result
}

// History keeps the latest results in memory, oldest first.
type History struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max}
}

// Add appends an entry, dropping the oldest one when full.
func (h *History) Add(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Entries returns a copy of the history.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
