// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/chickenai/breeds-gw/pkg/core/engine"
	"github.com/chickenai/breeds-gw/pkg/core/vision"
	"github.com/chickenai/breeds-gw/pkg/entitlement"
)

// maxImageSize caps an identification request body.
const maxImageSize = 20 << 20

// errBadBody marks client mistakes in the request body.
var errBadBody = errors.New("invalid request body")

type identifyJSONRequest struct {
	Image string `json:"image"`
}

// handleIdentify handles POST /v1/identifications. Identification outcomes,
// including fallbacks, are always 200.
func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	subscriber := r.Header.Get(entitlement.Header)
	if h.entitlement != nil && !h.entitlement.Entitled(r.Context(), subscriber) {
		h.writeError(w, http.StatusPaymentRequired, "not_entitled", "An active subscription is required to identify breeds")
		return
	}
	if h.limiter != nil && !h.limiter.allow(clientKey(r)) {
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many identification requests")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	req, err := readImage(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Image exceeds the size limit")
			return
		}
		h.logger.Warn("Rejected identification body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.engine.Identify(r.Context(), req)
	if err != nil {
		h.logger.Error("Identification failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "server_error", "Identification failed")
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// readImage accepts a raw image body, a multipart form with an "image" file
// or a JSON document carrying a data URI.
func readImage(r *http.Request) (*engine.Request, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if ct != "" && err != nil {
		return nil, fmt.Errorf("%w: malformed Content-Type", errBadBody)
	}

	switch {
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			return nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: image field is required", errBadBody)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		return &engine.Request{Image: data, MimeType: header.Header.Get("Content-Type")}, nil

	case mediaType == "application/json":
		var body identifyJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		mimeType, data, err := vision.ParseDataURI(body.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadBody, err)
		}
		return &engine.Request{Image: data, MimeType: mimeType}, nil

	case mediaType == "" || mediaType == "application/octet-stream" || strings.HasPrefix(mediaType, "image/"):
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if mediaType == "application/octet-stream" {
			mediaType = ""
		}
		return &engine.Request{Image: data, MimeType: mediaType}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported Content-Type %q", errBadBody, mediaType)
	}
}
