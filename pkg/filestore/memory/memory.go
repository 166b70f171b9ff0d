// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/chickenai/breeds-gw/pkg/filestore"
)

// DefaultMaxFiles bounds the snapshots kept when no limit is configured.
const DefaultMaxFiles = 100

func init() {
	filestore.Providers.Register("memory", func(_ context.Context, params map[string]string) (filestore.FileStore, error) {
		maxFiles := DefaultMaxFiles
		if v := params["max_files"]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("memory file store: max_files must be a positive integer, got %q", v)
			}
			maxFiles = n
		}
		return New(WithMaxFiles(maxFiles)), nil
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// Store keeps snapshots in process memory. Once maxFiles snapshots are held,
// creating another evicts the oldest.
type Store struct {
	mu       sync.RWMutex
	files    map[string]*filestore.File
	order    []string // oldest first
	maxFiles int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxFiles caps the number of snapshots kept. n < 1 keeps the default.
func WithMaxFiles(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxFiles = n
		}
	}
}

// New creates a new in-memory snapshot store.
func New(opts ...Option) *Store {
	s := &Store{
		files:    make(map[string]*filestore.File),
		maxFiles: DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFile stores a new snapshot.
func (s *Store) CreateFile(_ context.Context, file *filestore.File) error {
	if err := filestore.CheckID(file.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[file.ID]; exists {
		return fmt.Errorf("snapshot %s already exists", file.ID)
	}

	for len(s.order) >= s.maxFiles {
		delete(s.files, s.order[0])
		s.order = s.order[1:]
	}

	cp := *file
	cp.Content = append([]byte(nil), file.Content...)
	s.files[file.ID] = &cp
	s.order = append(s.order, file.ID)
	return nil
}

// GetFile returns snapshot metadata (Content is nil).
func (s *Store) GetFile(_ context.Context, fileID string) (*filestore.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[fileID]
	if !exists {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}

	cp := *file
	cp.Content = nil
	return &cp, nil
}

// GetFileContent returns the raw photo bytes.
func (s *Store) GetFileContent(_ context.Context, fileID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, exists := s.files[fileID]
	if !exists {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	return append([]byte(nil), file.Content...), nil
}

// DeleteFile removes a snapshot.
func (s *Store) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[fileID]; !exists {
		return fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	delete(s.files, fileID)
	if i := slices.Index(s.order, fileID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
