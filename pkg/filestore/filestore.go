// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore archives the photos submitted for identification.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/chickenai/breeds-gw/pkg/provider"
)

// ErrFileNotFound is returned when a snapshot does not exist.
var ErrFileNotFound = errors.New("snapshot not found")

// ErrInvalidID is returned for IDs that do not look like snapshot IDs.
var ErrInvalidID = errors.New("invalid snapshot id")

// Providers is the registry of snapshot store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/chickenai/breeds-gw/pkg/filestore/memory"
//	import _ "github.com/chickenai/breeds-gw/pkg/filestore/filesystem"
//	import _ "github.com/chickenai/breeds-gw/pkg/filestore/s3"
var Providers = provider.NewRegistry[FileStore]("file_store")

var idPattern = regexp.MustCompile(`^snap_[0-9a-f]{32}$`)

// File is one archived photo.
type File struct {
	ID        string
	MimeType  string
	Bytes     int64
	SHA256    string
	Content   []byte // populated for CreateFile input; nil for GetFile output
	CreatedAt time.Time
}

// NewSnapshot wraps content in a File with a fresh ID and digest.
func NewSnapshot(content []byte, mimeType string) *File {
	sum := sha256.Sum256(content)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &File{
		ID:        "snap_" + hex.EncodeToString(uuidBytes()),
		MimeType:  mimeType,
		Bytes:     int64(len(content)),
		SHA256:    hex.EncodeToString(sum[:]),
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func uuidBytes() []byte {
	id := uuid.New()
	return id[:]
}

// CheckID rejects IDs that could not have come from NewSnapshot. Backends
// call it before touching storage so IDs never escape their namespace.
func CheckID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// FileStore defines the interface for pluggable snapshot storage backends.
type FileStore interface {
	CreateFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, fileID string) (*File, error)
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
	Close(ctx context.Context) error
}
