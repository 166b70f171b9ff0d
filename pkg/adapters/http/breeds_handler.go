// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"
	"strconv"

	"github.com/chickenai/breeds-gw/pkg/catalog"
)

const defaultNearbyLimit = 5

// handleListBreeds handles GET /v1/breeds with an optional ?q= filter.
func (h *Handler) handleListBreeds(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, list(h.engine.Catalog().Search(r.URL.Query().Get("q"))))
}

// handleNearbyBreeds handles GET /v1/breeds/nearby?lat=&lon=&limit=.
func (h *Handler) handleNearbyBreeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "lat must be a number between -90 and 90")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "lon must be a number between -180 and 180")
		return
	}
	limit := defaultNearbyLimit
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, list(h.engine.Catalog().Nearby(lat, lon, limit)))
}

// handleGetBreed handles GET /v1/breeds/{id}. Custom breeds resolve too.
func (h *Handler) handleGetBreed(w http.ResponseWriter, r *http.Request) {
	b, found, err := h.lookupBreed(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "not_found", "Breed not found")
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

// handleListArticles handles GET /v1/articles.
func (h *Handler) handleListArticles(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, list(h.articles))
}

// handleGetArticle handles GET /v1/articles/{id}.
func (h *Handler) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := catalog.ArticleByID(h.articles, r.PathValue("id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "Article not found")
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}
