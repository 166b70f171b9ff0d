// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestoretest provides a shared conformance test suite for
// filestore.FileStore implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package filestoretest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/chickenai/breeds-gw/pkg/filestore"
)

// missingID is well formed but never created.
const missingID = "snap_00000000000000000000000000000000"

// RunConformanceTests exercises a FileStore implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) filestore.FileStore) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := filestore.NewSnapshot([]byte("\xff\xd8\xff photo"), "image/jpeg")
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFile(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if got.ID != f.ID || got.MimeType != f.MimeType || got.Bytes != f.Bytes || got.SHA256 != f.SHA256 {
			t.Errorf("GetFile returned unexpected metadata: %+v", got)
		}
		if !got.CreatedAt.Equal(f.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, f.CreatedAt)
		}
		// Content should be nil from GetFile (metadata-only)
		if got.Content != nil {
			t.Errorf("expected Content to be nil from GetFile, got %d bytes", len(got.Content))
		}
	})

	t.Run("GetContent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
		f := filestore.NewSnapshot(content, "image/png")
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}

		got, err := store.GetFileContent(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFileContent: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		f := filestore.NewSnapshot([]byte("del"), "image/jpeg")
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
		if err := store.DeleteFile(ctx, f.ID); err != nil {
			t.Fatalf("DeleteFile: %v", err)
		}

		_, err := store.GetFile(ctx, f.ID)
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound after delete, got: %v", err)
		}
		_, err = store.GetFileContent(ctx, f.ID)
		if !errors.Is(err, filestore.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound for content after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		for _, id := range []string{missingID, "../outside"} {
			if _, err := store.GetFile(ctx, id); !errors.Is(err, filestore.ErrFileNotFound) {
				t.Errorf("GetFile(%q) expected ErrFileNotFound, got: %v", id, err)
			}
			if _, err := store.GetFileContent(ctx, id); !errors.Is(err, filestore.ErrFileNotFound) {
				t.Errorf("GetFileContent(%q) expected ErrFileNotFound, got: %v", id, err)
			}
			if err := store.DeleteFile(ctx, id); !errors.Is(err, filestore.ErrFileNotFound) {
				t.Errorf("DeleteFile(%q) expected ErrFileNotFound, got: %v", id, err)
			}
		}
	})

	t.Run("RejectsInvalidID", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())

		f := filestore.NewSnapshot([]byte("x"), "image/jpeg")
		f.ID = "../escape"
		if err := store.CreateFile(context.Background(), f); !errors.Is(err, filestore.ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got: %v", err)
		}
	})

	t.Run("Isolation", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("original")
		f := filestore.NewSnapshot(content, "image/jpeg")
		if err := store.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
		content[0] = 'X'

		got, err := store.GetFileContent(ctx, f.ID)
		if err != nil {
			t.Fatalf("GetFileContent: %v", err)
		}
		if string(got) != "original" {
			t.Errorf("stored content changed with caller buffer: %q", got)
		}
	})
}
