// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package statetest provides a shared conformance test suite for state.Store
// implementations. Each backend should call RunConformanceTests from its own
// _test.go file.
package statetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
)

func breed(id, name string) catalog.Breed {
	return catalog.Breed{
		ID:       id,
		Name:     name,
		Origin:   "Somewhere",
		Location: catalog.Location{Latitude: 51.5, Longitude: -0.12},
		Colors:   []string{"White", "Buff"},
	}
}

func names(bs []catalog.Breed) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

// RunConformanceTests exercises a Store implementation against the shared
// contract. newStore is called once per sub-test and must return an empty,
// isolated store.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) state.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyLists", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		for _, l := range state.Lists() {
			got, err := s.List(ctx, l)
			require.NoError(t, err)
			assert.Empty(t, got)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		in := breed("id-1", "Silkie")
		in.Description = "Fluffy"
		in.Custom = true
		added, err := s.Add(ctx, state.Custom, in)
		require.NoError(t, err)
		assert.True(t, added)

		got, err := s.List(ctx, state.Custom)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, in, got[0])
	})

	t.Run("InsertionOrder", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		for i, n := range []string{"Sussex", "Ancona", "Leghorn", "Brahma"} {
			_, err := s.Add(ctx, state.Saved, breed(string(rune('a'+i)), n))
			require.NoError(t, err)
		}
		got, err := s.List(ctx, state.Saved)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sussex", "Ancona", "Leghorn", "Brahma"}, names(got))
	})

	t.Run("SavedDedupByID", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		added, err := s.Add(ctx, state.Saved, breed("id-1", "Silkie"))
		require.NoError(t, err)
		assert.True(t, added)
		added, err = s.Add(ctx, state.Saved, breed("id-1", "Silkie"))
		require.NoError(t, err)
		assert.False(t, added)
		added, err = s.Add(ctx, state.Saved, breed("id-2", "Silkie"))
		require.NoError(t, err)
		assert.True(t, added)

		got, err := s.List(ctx, state.Saved)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("IdentifiedDedupByName", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		added, err := s.Add(ctx, state.Identified, breed("id-1", "Silkie"))
		require.NoError(t, err)
		assert.True(t, added)
		added, err = s.Add(ctx, state.Identified, breed("id-2", "Silkie"))
		require.NoError(t, err)
		assert.False(t, added)

		got, err := s.List(ctx, state.Identified)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "id-1", got[0].ID)
	})

	t.Run("ListsAreIndependent", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		b := breed("id-1", "Silkie")
		_, err := s.Add(ctx, state.Saved, b)
		require.NoError(t, err)
		_, err = s.Add(ctx, state.Identified, b)
		require.NoError(t, err)

		require.NoError(t, s.Remove(ctx, state.Saved, "id-1"))
		ok, err := s.Contains(ctx, state.Identified, "id-1")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Contains(ctx, state.Saved, "id-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RemoveAndReAdd", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		for _, b := range []catalog.Breed{breed("a", "A"), breed("b", "B"), breed("c", "C")} {
			_, err := s.Add(ctx, state.Saved, b)
			require.NoError(t, err)
		}
		require.NoError(t, s.Remove(ctx, state.Saved, "a"))

		added, err := s.Add(ctx, state.Saved, breed("a", "A"))
		require.NoError(t, err)
		assert.True(t, added)

		got, err := s.List(ctx, state.Saved)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, names(got))
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		err := s.Remove(ctx, state.Saved, "nope")
		assert.True(t, errors.Is(err, state.ErrNotFound), "got %v", err)
	})

	t.Run("UnknownList", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Add(ctx, "wishlist", breed("a", "A"))
		assert.Error(t, err)
		_, err = s.List(ctx, "wishlist")
		assert.Error(t, err)
	})

	t.Run("ConcurrentAdds", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Add(ctx, state.Identified, breed("id-x", "Brahma"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.List(ctx, state.Identified)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
