// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"net/http"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/engine"
	"github.com/chickenai/breeds-gw/pkg/entitlement"
	"github.com/chickenai/breeds-gw/pkg/observability/logging"
	"github.com/chickenai/breeds-gw/pkg/observability/metrics"
)

// Handler implements the HTTP adapter
type Handler struct {
	engine      *engine.Engine
	logger      *logging.Logger
	mux         *http.ServeMux
	root        http.Handler
	metrics     *metrics.Metrics
	entitlement entitlement.Checker
	limiter     *rateLimiter
	articles    []catalog.Article
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMetrics instruments every route and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithEntitlement gates identifications. Without it everyone is entitled.
func WithEntitlement(c entitlement.Checker) Option {
	return func(h *Handler) { h.entitlement = c }
}

// WithRateLimit limits identifications per client. perSecond <= 0 disables.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond > 0 {
			h.limiter = newRateLimiter(perSecond, burst)
		}
	}
}

// New creates a new HTTP handler
func New(eng *engine.Engine, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{
		engine: eng,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	articles, err := catalog.Articles()
	if err != nil {
		h.logger.Error("Failed to load bundled articles", "error", err)
	}
	h.articles = articles

	// Register routes
	h.mux.HandleFunc("GET /health", h.handleHealth)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics.Handler())
	}

	// Identification
	h.mux.HandleFunc("POST /v1/identifications", h.handleIdentify)
	h.mux.HandleFunc("GET /v1/snapshots/{id}/content", h.handleGetSnapshotContent)
	h.mux.HandleFunc("DELETE /v1/snapshots/{id}", h.handleDeleteSnapshot)

	// Catalog
	h.mux.HandleFunc("GET /v1/breeds", h.handleListBreeds)
	h.mux.HandleFunc("GET /v1/breeds/nearby", h.handleNearbyBreeds)
	h.mux.HandleFunc("GET /v1/breeds/{id}", h.handleGetBreed)
	h.mux.HandleFunc("GET /v1/articles", h.handleListArticles)
	h.mux.HandleFunc("GET /v1/articles/{id}", h.handleGetArticle)

	// Collections
	h.mux.HandleFunc("GET /v1/saved", h.handleListSaved)
	h.mux.HandleFunc("POST /v1/saved", h.handleSave)
	h.mux.HandleFunc("DELETE /v1/saved/{id}", h.handleUnsave)
	h.mux.HandleFunc("GET /v1/history", h.handleListHistory)
	h.mux.HandleFunc("DELETE /v1/history/{id}", h.handleDeleteHistory)
	h.mux.HandleFunc("GET /v1/custom-breeds", h.handleListCustomBreeds)
	h.mux.HandleFunc("POST /v1/custom-breeds", h.handleCreateCustomBreed)
	h.mux.HandleFunc("DELETE /v1/custom-breeds/{id}", h.handleDeleteCustomBreed)

	h.root = h.mux
	if h.metrics != nil {
		h.root = h.metrics.InstrumentHandler(h.mux)
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	h.root.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"breeds": h.engine.Catalog().Len(),
	})
}

type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func list[T any](data []T) listResponse[T] {
	if data == nil {
		data = []T{}
	}
	return listResponse[T]{Object: "list", Data: data}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
