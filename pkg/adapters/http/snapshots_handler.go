// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chickenai/breeds-gw/pkg/filestore"
)

// handleGetSnapshotContent handles GET /v1/snapshots/{id}/content.
func (h *Handler) handleGetSnapshotContent(w http.ResponseWriter, r *http.Request) {
	snapshots := h.engine.Snapshots()
	if snapshots == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Snapshot archive is disabled")
		return
	}
	id := r.PathValue("id")

	file, err := snapshots.GetFile(r.Context(), id)
	if err != nil {
		h.writeSnapshotError(w, id, err)
		return
	}
	content, err := snapshots.GetFileContent(r.Context(), id)
	if err != nil {
		h.writeSnapshotError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	if file.SHA256 != "" {
		w.Header().Set("ETag", `"`+file.SHA256+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		h.logger.Warn("Failed to write snapshot", "snapshot_id", id, "error", err)
	}
}

// handleDeleteSnapshot handles DELETE /v1/snapshots/{id}.
func (h *Handler) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshots := h.engine.Snapshots()
	if snapshots == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Snapshot archive is disabled")
		return
	}
	id := r.PathValue("id")
	if err := filestore.CheckID(id); err != nil {
		h.writeSnapshotError(w, id, err)
		return
	}
	if err := snapshots.DeleteFile(r.Context(), id); err != nil {
		h.writeSnapshotError(w, id, err)
		return
	}
	h.logger.Info("Deleted snapshot", "snapshot_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSnapshotError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, filestore.ErrFileNotFound) || errors.Is(err, filestore.ErrInvalidID) {
		h.writeError(w, http.StatusNotFound, "not_found", "Snapshot not found")
		return
	}
	h.logger.Error("Failed to read snapshot", "snapshot_id", id, "error", err)
	h.writeError(w, http.StatusInternalServerError, "read_error", "Failed to read snapshot")
}
