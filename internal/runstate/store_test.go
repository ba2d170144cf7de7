package runstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	state, err := store.Load()
	require.NoError(t, err)
	assert.False(t, state.Running)
	assert.Empty(t, state.History)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewStore(path)

	saved := State{
		Running: true,
		History: []domain.HistoryEntry{
			{
				ProductID:    "101",
				ProductTitle: "牛皮钱包",
				Status:       domain.VerdictRejected,
				Reason:       "文本违规",
				Timestamp:    time.Now().Truncate(time.Second),
			},
		},
	}

	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Running)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "101", loaded.History[0].ProductID)
	assert.Equal(t, domain.VerdictRejected, loaded.History[0].Status)
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	require.NoError(t, store.Save(State{Running: true}))
	require.NoError(t, store.Save(State{Running: false}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, loaded.Running)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"))

	require.NoError(t, store.Save(State{Running: true}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}
