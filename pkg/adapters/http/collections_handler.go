// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
)

const maxJSONBody = 1 << 20

type saveRequest struct {
	BreedID string `json:"breed_id"`
}

func (h *Handler) handleListSaved(w http.ResponseWriter, r *http.Request) {
	h.listCollection(w, r, state.Saved)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	h.listCollection(w, r, state.Identified)
}

func (h *Handler) handleListCustomBreeds(w http.ResponseWriter, r *http.Request) {
	h.listCollection(w, r, state.Custom)
}

func (h *Handler) handleUnsave(w http.ResponseWriter, r *http.Request) {
	h.removeFromCollection(w, r, state.Saved)
}

func (h *Handler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	h.removeFromCollection(w, r, state.Identified)
}

// handleDeleteCustomBreed removes a custom breed and any favorite of it.
func (h *Handler) handleDeleteCustomBreed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.Store().Remove(r.Context(), state.Custom, id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.engine.Store().Remove(r.Context(), state.Saved, id); err != nil && !errors.Is(err, state.ErrNotFound) {
		h.logger.Warn("Failed to unsave deleted custom breed", "breed_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSave handles POST /v1/saved {"breed_id": "..."}.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil || req.BreedID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "breed_id is required")
		return
	}

	breed, found, err := h.lookupBreed(r.Context(), req.BreedID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "not_found", "Breed not found")
		return
	}

	added, err := h.engine.Store().Add(r.Context(), state.Saved, breed)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
		h.logger.Info("Saved breed", "breed", breed.Name)
	}
	h.writeJSON(w, status, breed)
}

// handleCreateCustomBreed handles POST /v1/custom-breeds.
func (h *Handler) handleCreateCustomBreed(w http.ResponseWriter, r *http.Request) {
	var in catalog.Breed
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	breed, err := state.NewCustomBreed(in)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if _, err := h.engine.Store().Add(r.Context(), state.Custom, breed); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("Created custom breed", "breed_id", breed.ID, "name", breed.Name)
	h.writeJSON(w, http.StatusCreated, breed)
}

func (h *Handler) listCollection(w http.ResponseWriter, r *http.Request, l state.List) {
	breeds, err := h.engine.Store().List(r.Context(), l)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list(breeds))
}

func (h *Handler) removeFromCollection(w http.ResponseWriter, r *http.Request, l state.List) {
	if err := h.engine.Store().Remove(r.Context(), l, r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookupBreed finds a built-in or custom breed by ID.
func (h *Handler) lookupBreed(ctx context.Context, id string) (catalog.Breed, bool, error) {
	if b, ok := h.engine.Catalog().ByID(id); ok {
		return b, true, nil
	}
	custom, err := h.engine.Store().List(ctx, state.Custom)
	if err != nil {
		return catalog.Breed{}, false, err
	}
	for _, b := range custom {
		if b.ID == id {
			return b, true, nil
		}
	}
	return catalog.Breed{}, false, nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	h.logger.Error("Collection store failure", "error", err)
	h.writeError(w, http.StatusInternalServerError, "server_error", "Collection store failure")
}
