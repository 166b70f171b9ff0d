// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/chickenai/breeds-gw/pkg/filestore"
)

func init() {
	filestore.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (filestore.FileStore, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// snapshotMetadata is the on-disk representation stored in metadata.json.
type snapshotMetadata struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mime_type"`
	Bytes     int64     `json:"bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// Store implements filestore.FileStore on a local directory.
//
// Layout:
//
//	<baseDir>/<snapshot_id>/content        raw photo bytes
//	<baseDir>/<snapshot_id>/metadata.json  JSON metadata sidecar
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if it does not exist.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("filesystem filestore: base_dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// CreateFile writes the photo and its metadata, each atomically.
func (s *Store) CreateFile(_ context.Context, file *filestore.File) error {
	if err := filestore.CheckID(file.ID); err != nil {
		return err
	}
	dir := filepath.Join(s.baseDir, file.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, "content"), file.Content); err != nil {
		return fmt.Errorf("write content: %w", err)
	}

	metaBytes, err := json.Marshal(snapshotMetadata{
		ID:        file.ID,
		MimeType:  file.MimeType,
		Bytes:     file.Bytes,
		SHA256:    file.SHA256,
		CreatedAt: file.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "metadata.json"), metaBytes); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// writeAtomic writes data to a temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// GetFile returns snapshot metadata (Content is nil).
func (s *Store) GetFile(_ context.Context, fileID string) (*filestore.File, error) {
	if err := filestore.CheckID(fileID); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	metaPath := filepath.Join(s.baseDir, fileID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta snapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata for %s: %w", fileID, err)
	}
	return &filestore.File{
		ID:        meta.ID,
		MimeType:  meta.MimeType,
		Bytes:     meta.Bytes,
		SHA256:    meta.SHA256,
		CreatedAt: meta.CreatedAt,
	}, nil
}

// GetFileContent returns the raw photo bytes.
func (s *Store) GetFileContent(_ context.Context, fileID string) ([]byte, error) {
	if err := filestore.CheckID(fileID); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, fileID, "content"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

// DeleteFile removes the snapshot directory.
func (s *Store) DeleteFile(_ context.Context, fileID string) error {
	if err := filestore.CheckID(fileID); err != nil {
		return fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
	}
	dir := filepath.Join(s.baseDir, fileID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("snapshot %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return fmt.Errorf("stat snapshot dir: %w", err)
	}
	return os.RemoveAll(dir)
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
