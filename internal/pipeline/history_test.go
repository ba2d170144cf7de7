package pipeline

import (
	"strconv"
	"testing"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(10)

	h.Add(domain.HistoryEntry{ProductID: "1", Status: domain.VerdictPassed})
	h.Add(domain.HistoryEntry{ProductID: "2", Status: domain.VerdictRejected})

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].ProductID)
	assert.Equal(t, "1", entries[1].ProductID)
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory(1000)

	for i := 0; i < 1001; i++ {
		h.Add(domain.HistoryEntry{ProductID: strconv.Itoa(i), Status: domain.VerdictPassed})
	}

	assert.Equal(t, 1000, h.Len())
	assert.False(t, h.Contains("0"))
	assert.True(t, h.Contains("1"))
	assert.Equal(t, "1000", h.Entries()[0].ProductID)
}

func TestHistoryIsRejected(t *testing.T) {
	h := NewHistory(10)

	h.Add(domain.HistoryEntry{ProductID: "1", Status: domain.VerdictPassed})
	h.Add(domain.HistoryEntry{ProductID: "2", Status: domain.VerdictRejected})

	assert.False(t, h.IsRejected("1"))
	assert.True(t, h.IsRejected("2"))
	assert.False(t, h.IsRejected("3"))
}

func TestHistoryRestoreTruncates(t *testing.T) {
	entries := make([]domain.HistoryEntry, 5)
	for i := range entries {
		entries[i] = domain.HistoryEntry{ProductID: strconv.Itoa(i)}
	}

	h := NewHistory(3)
	h.Restore(entries)

	assert.Equal(t, 3, h.Len())
	assert.True(t, h.Contains("0"))
	assert.False(t, h.Contains("4"))
}

func TestHistoryEntriesIsACopy(t *testing.T) {
	h := NewHistory(10)
	h.Add(domain.HistoryEntry{ProductID: "1"})

	entries := h.Entries()
	entries[0].ProductID = "mutated"

	assert.Equal(t, "1", h.Entries()[0].ProductID)
}
