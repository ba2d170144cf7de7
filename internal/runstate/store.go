// Package runstate persists the pipeline's cross-restart state: the
// "a run was active" flag read once at startup to decide auto-resume, and a
// snapshot of the bounded history list.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Johnhpure/product-audit/internal/domain"
)

type State struct {
	Running bool                  `json:"running"`
	History []domain.HistoryEntry `json:"history,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state; a missing file is an empty state, not an
// error.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read run state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode run state: %w", err)
	}

	return state, nil
}

// Save writes the state via a temp file + rename so a crash mid-write never
// leaves a truncated state file.
func (s *Store) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace run state: %w", err)
	}

	return nil
}
