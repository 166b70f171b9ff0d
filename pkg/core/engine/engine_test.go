// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
	"github.com/chickenai/breeds-gw/pkg/core/vision"
	"github.com/chickenai/breeds-gw/pkg/filestore"
	fsmemory "github.com/chickenai/breeds-gw/pkg/filestore/memory"
	"github.com/chickenai/breeds-gw/pkg/storage/memory"
)

type identifierFunc func(ctx context.Context, image []byte) (string, error)

func (f identifierFunc) Identify(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

func labels(label string) Identifier {
	return identifierFunc(func(context.Context, []byte) (string, error) { return label, nil })
}

func failing(err error) Identifier {
	return identifierFunc(func(context.Context, []byte) (string, error) { return "", err })
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var breeds []catalog.Breed
	for _, n := range []string{"Sussex", "Leghorn", "Silkie", "Brahma", "Ancona"} {
		breeds = append(breeds, catalog.Breed{Name: n})
	}
	c, err := catalog.New(breeds)
	require.NoError(t, err)
	return c
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func newEngine(t *testing.T, id Identifier, opts ...Option) (*Engine, state.Store) {
	t.Helper()
	store := memory.New()
	e, err := New(testCatalog(t), id, store, seeded(1), opts...)
	require.NoError(t, err)
	return e, store
}

func assertDistinct(t *testing.T, bs []catalog.Breed) {
	t.Helper()
	seen := map[string]bool{}
	for _, b := range bs {
		assert.False(t, seen[b.ID], "duplicate breed %s", b.Name)
		seen[b.ID] = true
	}
}

type recording struct {
	mu    sync.Mutex
	calls []string
}

func (r *recording) RecordIdentification(outcome, kind string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, outcome+"/"+kind)
}

func TestIdentify_Matched(t *testing.T) {
	rec := &recording{}
	e, store := newEngine(t, labels("Silkie"), WithRecorder(rec))
	ctx := context.Background()

	res, err := e.Identify(ctx, &Request{Image: []byte("img")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, "Silkie", res.Candidate)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.FailureKind)
	require.Len(t, res.Breeds, catalog.FallbackSize)
	assert.Equal(t, "Silkie", res.Breeds[0].Name)
	assertDistinct(t, res.Breeds)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.CreatedAt.IsZero())

	for _, l := range []state.List{state.Identified, state.Saved} {
		got, err := store.List(ctx, l)
		require.NoError(t, err)
		require.Len(t, got, 1, "list %s", l)
		assert.Equal(t, "Silkie", got[0].Name)
	}
	assert.Equal(t, []string{"matched/"}, rec.calls)
}

func TestIdentify_HistoryDeduplicatesByName(t *testing.T) {
	e, store := newEngine(t, labels("Brahma"))
	ctx := context.Background()

	for range 3 {
		_, err := e.Identify(ctx, &Request{Image: []byte("img")})
		require.NoError(t, err)
	}
	got, err := store.List(ctx, state.Identified)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIdentify_UnsavedBreedStaysUnsaved(t *testing.T) {
	e, store := newEngine(t, labels("Silkie"))
	ctx := context.Background()

	_, err := e.Identify(ctx, &Request{Image: []byte("img")})
	require.NoError(t, err)
	saved, err := store.List(ctx, state.Saved)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.NoError(t, store.Remove(ctx, state.Saved, saved[0].ID))

	res, err := e.Identify(ctx, &Request{Image: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)

	saved, err = store.List(ctx, state.Saved)
	require.NoError(t, err)
	assert.Empty(t, saved)
	history, err := store.List(ctx, state.Identified)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestIdentify_UnknownLabelSubstitutes(t *testing.T) {
	rec := &recording{}
	e, store := newEngine(t, labels("Golden Silkie"), WithRecorder(rec))
	ctx := context.Background()

	res, err := e.Identify(ctx, &Request{Image: []byte("img")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSubstituted, res.Outcome)
	assert.Equal(t, "Golden Silkie", res.Candidate)
	assert.ErrorIs(t, res.Err, vision.ErrUnknownLabel)
	assert.Equal(t, vision.KindUnknownLabel, res.FailureKind)
	require.Len(t, res.Breeds, catalog.FallbackSize)
	_, member := e.Catalog().ByName(res.Breeds[0].Name)
	assert.True(t, member)
	assertDistinct(t, res.Breeds)

	got, err := store.List(ctx, state.Identified)
	require.NoError(t, err)
	assert.Empty(t, got, "substitutions are not recorded")
	assert.Equal(t, []string{"substituted/unknown_label"}, rec.calls)
}

func TestIdentify_ClientFailureFallsBack(t *testing.T) {
	for _, kind := range []vision.Kind{
		vision.KindImageEncoding, vision.KindCredential, vision.KindTransport,
		vision.KindUnexpectedStatus, vision.KindDecode,
	} {
		t.Run(string(kind), func(t *testing.T) {
			rec := &recording{}
			e, store := newEngine(t, failing(&vision.Error{Kind: kind}), WithRecorder(rec))

			res, err := e.Identify(context.Background(), &Request{Image: []byte("img")})
			require.NoError(t, err)

			assert.Equal(t, OutcomeFallback, res.Outcome)
			assert.Equal(t, kind, res.FailureKind)
			assert.Empty(t, res.Candidate)
			require.Len(t, res.Breeds, catalog.FallbackSize)
			assertDistinct(t, res.Breeds)

			got, err := store.List(context.Background(), state.Saved)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.Equal(t, []string{"fallback/" + string(kind)}, rec.calls)
		})
	}
}

func TestIdentify_UntypedFailure(t *testing.T) {
	e, _ := newEngine(t, failing(errors.New("boom")))
	res, err := e.Identify(context.Background(), &Request{Image: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, vision.Kind("unknown"), res.FailureKind)
}

func TestIdentify_DeterministicWithSeed(t *testing.T) {
	run := func() []string {
		e, err := New(testCatalog(t), failing(&vision.Error{Kind: vision.KindTransport}), memory.New(), seeded(42))
		require.NoError(t, err)
		var out []string
		for range 5 {
			res, err := e.Identify(context.Background(), &Request{})
			require.NoError(t, err)
			for _, b := range res.Breeds {
				out = append(out, b.Name)
			}
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestIdentify_ArchivesSnapshot(t *testing.T) {
	snaps := fsmemory.New()
	e, _ := newEngine(t, labels("Sussex"), WithSnapshots(snaps))
	ctx := context.Background()

	img := []byte("\x89PNG\r\n\x1a\nrest")
	res, err := e.Identify(ctx, &Request{Image: img})
	require.NoError(t, err)
	require.NotEmpty(t, res.SnapshotID)

	meta, err := snaps.GetFile(ctx, res.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", meta.MimeType)
	got, err := snaps.GetFileContent(ctx, res.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, img, got)

	empty, err := e.Identify(ctx, &Request{})
	require.NoError(t, err)
	assert.Empty(t, empty.SnapshotID)
}

type brokenArchive struct{ filestore.FileStore }

func (brokenArchive) CreateFile(context.Context, *filestore.File) error {
	return errors.New("disk full")
}

func TestIdentify_ArchiveFailureDoesNotChangeResult(t *testing.T) {
	e, _ := newEngine(t, labels("Sussex"), WithSnapshots(brokenArchive{}))

	res, err := e.Identify(context.Background(), &Request{Image: []byte("img"), MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Empty(t, res.SnapshotID)
}

type brokenStore struct{ state.Store }

func (brokenStore) Add(context.Context, state.List, catalog.Breed) (bool, error) {
	return false, errors.New("db down")
}

func TestIdentify_StoreFailureDoesNotChangeResult(t *testing.T) {
	e, err := New(testCatalog(t), labels("Silkie"), brokenStore{}, seeded(3))
	require.NoError(t, err)

	res, err := e.Identify(context.Background(), &Request{Image: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, "Silkie", res.Breeds[0].Name)
}

func TestIdentify_NilRequest(t *testing.T) {
	e, _ := newEngine(t, labels("Silkie"))
	_, err := e.Identify(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	c := testCatalog(t)
	store := memory.New()

	_, err := New(nil, labels("x"), store, nil)
	assert.Error(t, err)
	_, err = New(c, nil, store, nil)
	assert.Error(t, err)
	_, err = New(c, labels("x"), nil, nil)
	assert.Error(t, err)

	e, err := New(c, labels("x"), store, nil)
	require.NoError(t, err)
	assert.Same(t, c, e.Catalog())
	assert.Same(t, state.Store(store), e.Store())
	assert.Nil(t, e.Snapshots())
}
