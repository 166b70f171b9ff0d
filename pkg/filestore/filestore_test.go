// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"errors"
	"testing"
)

func TestNewSnapshot(t *testing.T) {
	f := NewSnapshot([]byte("abc"), "image/png")
	if err := CheckID(f.ID); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
	if f.Bytes != 3 || f.MimeType != "image/png" {
		t.Errorf("unexpected metadata: %+v", f)
	}
	if f.SHA256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected digest %s", f.SHA256)
	}
	if NewSnapshot(nil, "").MimeType != "application/octet-stream" {
		t.Error("expected default mime type")
	}
	if NewSnapshot(nil, "").ID == f.ID {
		t.Error("expected unique ids")
	}
}

func TestCheckID(t *testing.T) {
	for _, id := range []string{"", "snap_", "../etc/passwd", "snap_../../x", "file_0123456789abcdef0123456789abcdef"} {
		if err := CheckID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("CheckID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}
