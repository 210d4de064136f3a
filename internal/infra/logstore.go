package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/focusfade/focusfade/internal/domain"
)

// FileLogStore implements domain.LogStore as a flat JSON array on disk.
// Every append reads the full array, appends one record and rewrites
// the file atomically (write + rename). Last-writer-wins; acceptable
// for single-process usage.
type FileLogStore struct {
	mu   sync.Mutex
	path string
}

// NewFileLogStore creates a log store at the given path.
func NewFileLogStore(path string) *FileLogStore {
	return &FileLogStore{path: path}
}

// Path returns the log file path.
func (s *FileLogStore) Path() string {
	return s.path
}

// All returns every record. A missing file is an empty log, not an error.
func (s *FileLogStore) All() ([]domain.FocusLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Append adds one record and rewrites the whole file.
func (s *FileLogStore) Append(rec domain.FocusLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.writeLocked(records)
}

func (s *FileLogStore) readLocked() ([]domain.FocusLogRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.FocusLogRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var records []domain.FocusLogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse log file: %w", err)
	}
	return records, nil
}

// writeLocked writes the array atomically (temp file + rename).
func (s *FileLogStore) writeLocked(records []domain.FocusLogRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FileLogStore implements domain.LogStore.
var _ domain.LogStore = (*FileLogStore)(nil)
