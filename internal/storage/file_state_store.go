package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStateStore keeps per-agent scheduling state in a local YAML file.
type FileStateStore struct {
	mu   sync.Mutex
	path string
}

// fileState is the on-disk layout.
type fileState struct {
	LastRunTimes map[string]time.Time `yaml:"last_run_times"`
}

// LastRunTime returns when the agent last completed a live run, or the zero time if it never has.
func (s *FileStateStore) LastRunTime(_ context.Context, agentID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return time.Time{}, err
	}
	return state.LastRunTimes[agentID], nil
}

// SetLastRunTime records when the agent completed a live run.
func (s *FileStateStore) SetLastRunTime(_ context.Context, agentID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	state.LastRunTimes[agentID] = t.UTC()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}

	return nil
}

// read loads the state file. A missing file is an empty state.
func (s *FileStateStore) read() (*fileState, error) {
	state := &fileState{}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading state file: %w", err)
	default:
		if err := yaml.Unmarshal(data, state); err != nil {
			return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
		}
	}

	if state.LastRunTimes == nil {
		state.LastRunTimes = map[string]time.Time{}
	}
	return state, nil
}

// NewFileStateStore creates a new FileStateStore that reads and writes the given path.
func NewFileStateStore(path string) (*FileStateStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	return &FileStateStore{path: path}, nil
}
