// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the identification workflow: classify a photo, resolve
// the label against the catalog, fall back to random breeds on failure and
// record the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
	"github.com/chickenai/breeds-gw/pkg/core/vision"
	"github.com/chickenai/breeds-gw/pkg/filestore"
	"github.com/chickenai/breeds-gw/pkg/observability/logging"
)

// Identifier returns a free-text breed label for a photo.
// Implemented by vision.Client.
type Identifier interface {
	Identify(ctx context.Context, image []byte) (string, error)
}

// Recorder receives one observation per identification.
// Implemented by metrics.Metrics.
type Recorder interface {
	RecordIdentification(outcome, kind string, d time.Duration)
}

// Outcome says how the breed list of a Result was produced.
type Outcome string

const (
	// OutcomeMatched means the model's label named a catalog breed.
	OutcomeMatched Outcome = "matched"
	// OutcomeSubstituted means the label was unknown and a random breed
	// took its place.
	OutcomeSubstituted Outcome = "substituted"
	// OutcomeFallback means classification failed and the list is random.
	OutcomeFallback Outcome = "fallback"
)

// Request is one photo to identify.
type Request struct {
	Image []byte
	// MimeType of Image as received; sniffed when empty.
	MimeType string
}

// Result is what the caller presents. Breeds is never empty.
type Result struct {
	ID          string          `json:"id"`
	Outcome     Outcome         `json:"outcome"`
	Breeds      []catalog.Breed `json:"breeds"`
	Candidate   string          `json:"candidate,omitempty"`
	FailureKind vision.Kind     `json:"failure_kind,omitempty"`
	SnapshotID  string          `json:"snapshot_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`

	// Err is the cause of a substituted or fallback outcome.
	Err error `json:"-"`
}

// Engine is the identification workflow.
type Engine struct {
	matcher    *catalog.Matcher
	identifier Identifier
	store      state.Store
	snapshots  filestore.FileStore
	recorder   Recorder
	logger     *logging.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSnapshots archives every submitted photo to fs.
func WithSnapshots(fs filestore.FileStore) Option {
	return func(e *Engine) { e.snapshots = fs }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over cat. rng drives every random choice; pass a
// seeded source for reproducible fallbacks.
func New(cat *catalog.Catalog, identifier Identifier, store state.Store, rng *rand.Rand, opts ...Option) (*Engine, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("catalog is required")
	}
	if identifier == nil {
		return nil, fmt.Errorf("identifier is required")
	}
	if store == nil {
		return nil, fmt.Errorf("collection store is required")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e := &Engine{
		matcher:    catalog.NewMatcher(cat, rng),
		identifier: identifier,
		store:      store,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Catalog returns the identification vocabulary.
func (e *Engine) Catalog() *catalog.Catalog { return e.matcher.Catalog() }

// Store returns the collections store.
func (e *Engine) Store() state.Store { return e.store }

// Snapshots returns the snapshot archive, or nil.
func (e *Engine) Snapshots() filestore.FileStore { return e.snapshots }

// Identify classifies req.Image. Every classification failure degrades to a
// random breed list; the error return is only for a nil request.
func (e *Engine) Identify(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("identification request is required")
	}
	start := time.Now()
	res := &Result{
		ID:        "ident_" + uuid.NewString(),
		CreatedAt: start.UTC(),
	}
	res.SnapshotID = e.archive(ctx, req)

	label, err := e.identifier.Identify(ctx, req.Image)
	if err != nil {
		res.Outcome = OutcomeFallback
		res.Err = err
		res.FailureKind = vision.KindOf(err)
		if res.FailureKind == "" {
			res.FailureKind = "unknown"
		}
		res.Breeds = e.matcher.Fallback(catalog.FallbackSize)
	} else {
		res.Candidate = label
		breed, ok := e.matcher.Resolve(label)
		res.Breeds = append([]catalog.Breed{breed}, e.matcher.Companions(breed, catalog.FallbackSize-1)...)
		if ok {
			res.Outcome = OutcomeMatched
			e.remember(ctx, breed)
		} else {
			res.Outcome = OutcomeSubstituted
			res.Err = &vision.Error{Kind: vision.KindUnknownLabel, Cause: fmt.Errorf("label %q is not a catalog breed", label)}
			res.FailureKind = vision.KindUnknownLabel
		}
	}

	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordIdentification(string(res.Outcome), string(res.FailureKind), elapsed)
	}
	if res.Err != nil {
		e.logger.Warn("Identification degraded",
			"id", res.ID, "outcome", res.Outcome, "kind", res.FailureKind, "error", res.Err)
	} else {
		e.logger.Info("Identified breed",
			"id", res.ID, "breed", res.Breeds[0].Name, "duration", elapsed)
	}
	return res, nil
}

// remember adds a confirmed match to the history. A breed entering the
// history for the first time is also saved to the favorites, so a later
// unsave sticks across repeat matches.
func (e *Engine) remember(ctx context.Context, breed catalog.Breed) {
	added, err := e.store.Add(ctx, state.Identified, breed)
	if err != nil {
		e.logger.Warn("Failed to record identified breed", "list", state.Identified, "breed", breed.Name, "error", err)
		return
	}
	if !added {
		return
	}
	if _, err := e.store.Add(ctx, state.Saved, breed); err != nil {
		e.logger.Warn("Failed to record identified breed", "list", state.Saved, "breed", breed.Name, "error", err)
	}
}

func (e *Engine) archive(ctx context.Context, req *Request) string {
	if e.snapshots == nil || len(req.Image) == 0 {
		return ""
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(req.Image)
	}
	snap := filestore.NewSnapshot(req.Image, mimeType)
	if err := e.snapshots.CreateFile(ctx, snap); err != nil {
		e.logger.Warn("Failed to archive snapshot", "error", err)
		return ""
	}
	return snap.ID
}
