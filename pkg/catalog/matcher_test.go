// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ExactMatch(t *testing.T) {
	c := testCatalog(t, "Leghorn", "Silkie", "Sussex")
	m := NewMatcher(c, seeded(1))

	for _, name := range c.Names() {
		got, ok := m.Resolve(name)
		assert.True(t, ok)
		assert.Equal(t, name, got.Name)
	}
}

func TestResolve_UnknownReturnsCatalogMember(t *testing.T) {
	c := testCatalog(t, "Leghorn", "Silkie", "Sussex")
	m := NewMatcher(c, seeded(2))

	for _, candidate := range []string{"leghorn", "", "   ", "Golden Silkie", "Silkie.", "The breed is Silkie"} {
		got, ok := m.Resolve(candidate)
		assert.False(t, ok, "candidate %q", candidate)
		_, member := c.ByName(got.Name)
		assert.True(t, member, "candidate %q resolved to %q", candidate, got.Name)
	}
}

func TestResolve_DeterministicWithSeed(t *testing.T) {
	c := testCatalog(t, "A", "B", "C", "D", "E")
	a := NewMatcher(c, seeded(7))
	b := NewMatcher(c, seeded(7))

	for range 10 {
		x, _ := a.Resolve("zzz")
		y, _ := b.Resolve("zzz")
		assert.Equal(t, x.Name, y.Name)
	}
}

func TestFallback_DistinctEntries(t *testing.T) {
	c := testCatalog(t, "A", "B", "C", "D", "E")
	m := NewMatcher(c, seeded(3))

	for range 50 {
		got := m.Fallback(FallbackSize)
		require.Len(t, got, 3)
		seen := map[string]bool{}
		for _, b := range got {
			assert.False(t, seen[b.ID], "duplicate %s", b.Name)
			seen[b.ID] = true
		}
	}
}

func TestFallback_SmallCatalog(t *testing.T) {
	m := NewMatcher(testCatalog(t, "A", "B"), seeded(4))
	got := m.Fallback(FallbackSize)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	assert.Empty(t, m.Fallback(0))
}

func TestCompanions_ExcludePrimary(t *testing.T) {
	c := testCatalog(t, "A", "B", "C", "D")
	m := NewMatcher(c, seeded(5))
	primary, _ := c.ByName("B")

	for range 50 {
		got := m.Companions(primary, 2)
		require.Len(t, got, 2)
		for _, b := range got {
			assert.NotEqual(t, primary.ID, b.ID)
		}
		assert.NotEqual(t, got[0].ID, got[1].ID)
	}

	single := NewMatcher(testCatalog(t, "Only"), seeded(6))
	only, _ := single.Catalog().ByName("Only")
	assert.Empty(t, single.Companions(only, 2))
}

func TestNewMatcher_PanicsOnEmptyCatalog(t *testing.T) {
	assert.Panics(t, func() { NewMatcher(&Catalog{}, seeded(1)) })
	assert.Panics(t, func() { NewMatcher(nil, seeded(1)) })
	assert.Panics(t, func() { NewMatcher(testCatalog(t, "A"), nil) })
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	m := NewMatcher(testCatalog(t, "A", "B", "C", "D"), seeded(8))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.Resolve("nope")
				m.Fallback(3)
			}
		}()
	}
	wg.Wait()
}
