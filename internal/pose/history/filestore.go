package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/banshee-data/reps.report/internal/fsutil"
)

// FileStore keeps the whole collection as one JSON array, rewritten
// atomically on every append.
type FileStore struct {
	path string
	fsys fsutil.FileSystem
	mu   sync.RWMutex
}

// NewFileStore stores records at path.
func NewFileStore(fsys fsutil.FileSystem, path string) *FileStore {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &FileStore{path: path, fsys: fsys}
}

// Append reads the collection, adds rec and writes it back.
func (s *FileStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records = append(records, rec)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return fsutil.WriteAtomic(s.fsys, s.path, data, 0o644)
}

// All returns every stored record.
func (s *FileStore) All(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileStore) read() ([]Record, error) {
	data, err := s.fsys.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}
	return records, nil
}
