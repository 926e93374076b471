// Package snapshot persists the timer state across restarts.
package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/yabswannalearn/OpenPomo/internal/model"
	"github.com/yabswannalearn/OpenPomo/internal/timer"
)

// Store reads and overwrites a single JSON snapshot of the timer state.
// It is single-writer; concurrent instances race with last-write-wins.
type Store struct {
	path string
}

// NewStore creates a snapshot store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state. A missing or malformed snapshot yields
// the default state for the given durations; corruption is never an error
// surfaced to the caller beyond starting fresh.
func (s *Store) Load(durations model.Durations) timer.State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return timer.DefaultState(durations)
	}
	var st timer.State
	if err := json.Unmarshal(data, &st); err != nil {
		return timer.DefaultState(durations)
	}
	if !st.Mode.Valid() {
		return timer.DefaultState(durations)
	}
	return st
}

// Save overwrites the snapshot atomically via a temp file and rename.
func (s *Store) Save(st timer.State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		removeErr := os.Remove(tmp)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			// Best-effort cleanup of the temp file.
			_ = removeErr
		}
		return err
	}
	return nil
}
