package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateFile caches expensive discovery results between runs, currently the
// location of the marker executable.
type StateFile struct {
	MarkerPath      string `json:"marker_path,omitempty"`
	MarkerAvailable bool   `json:"marker_available"`
	LastChecked     int64  `json:"last_checked,omitempty"` // Unix timestamp

	mu sync.RWMutex `json:"-"`
}

var (
	globalState *StateFile
	stateOnce   sync.Once
)

// GetGlobalState returns the singleton global state.
func GetGlobalState() *StateFile {
	stateOnce.Do(func() {
		globalState = loadGlobalState()
	})
	return globalState
}

func loadGlobalState() *StateFile {
	state := &StateFile{}
	if data, err := os.ReadFile(getStatePath()); err == nil {
		// Ignore JSON parsing errors and use defaults
		_ = json.Unmarshal(data, state)
	}
	return state
}

// Save writes the state to disk.
func (s *StateFile) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statePath := getStatePath()
	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// SetMarkerPath records the discovered marker path and saves the state.
func (s *StateFile) SetMarkerPath(path string, available bool) error {
	s.mu.Lock()
	s.MarkerPath = path
	s.MarkerAvailable = available
	s.LastChecked = time.Now().Unix()
	s.mu.Unlock()

	return s.Save()
}

// GetMarkerPath returns the cached marker path and its availability.
func (s *StateFile) GetMarkerPath() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MarkerPath, s.MarkerAvailable
}

// IsStale reports whether the cached state is older than 24 hours.
func (s *StateFile) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LastChecked == 0 {
		return true
	}
	return time.Now().Unix()-s.LastChecked > 24*60*60
}

// getStatePath returns the path to the state file.
func getStatePath() string {
	if customPath := os.Getenv("SLIDECRAFT_STATE_PATH"); customPath != "" {
		return customPath
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".slidecraft", "state.json")
}
