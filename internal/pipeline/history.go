package pipeline

import (
	"sync"

	"github.com/Johnhpure/product-audit/internal/domain"
)

// History is the bounded, newest-first trail of terminal outcomes. Entries
// are never mutated; beyond capacity the oldest are evicted. Rejected ids
// double as the in-session fast-path dedup set.
type History struct {
	mu       sync.RWMutex
	capacity int
	entries  []domain.HistoryEntry
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1000
	}
	return &History{capacity: capacity}
}

// Add prepends an entry, evicting the oldest beyond capacity.
func (h *History) Add(entry domain.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]domain.HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
}

// IsRejected reports whether the product was already rejected this session.
func (h *History) IsRejected(productID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.entries {
		if entry.ProductID == productID && entry.Status == domain.VerdictRejected {
			return true
		}
	}
	return false
}

// Contains reports whether any entry exists for the product.
func (h *History) Contains(productID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, entry := range h.entries {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns a copy, newest first.
func (h *History) Entries() []domain.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Restore replaces the list with a persisted snapshot.
func (h *History) Restore(entries []domain.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(entries) > h.capacity {
		entries = entries[:h.capacity]
	}
	h.entries = make([]domain.HistoryEntry, len(entries))
	copy(h.entries, entries)
}
