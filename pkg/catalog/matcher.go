// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"math/rand/v2"
	"sync"
)

// FallbackSize is the number of breeds shown when identification fails, and
// the length of a resolved result (primary breed plus companions).
const FallbackSize = 3

// Matcher resolves model labels against a catalog and produces randomized
// fallback selections. It is safe for concurrent use.
type Matcher struct {
	catalog *Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMatcher creates a matcher. rng must not be nil; pass a seeded source in
// tests for deterministic picks. An empty catalog is a configuration error
// and panics.
func NewMatcher(c *Catalog, rng *rand.Rand) *Matcher {
	if c == nil || c.Len() == 0 {
		panic("catalog: matcher requires a non-empty catalog")
	}
	if rng == nil {
		panic("catalog: matcher requires a random source")
	}
	return &Matcher{catalog: c, rng: rng}
}

// Catalog returns the catalog the matcher resolves against.
func (m *Matcher) Catalog() *Catalog { return m.catalog }

// Resolve returns the breed whose name equals candidate exactly. When no
// breed matches it returns a uniformly random breed and false.
func (m *Matcher) Resolve(candidate string) (Breed, bool) {
	if b, ok := m.catalog.ByName(candidate); ok {
		return b, true
	}
	m.mu.Lock()
	i := m.rng.IntN(m.catalog.Len())
	m.mu.Unlock()
	return m.catalog.At(i), false
}

// Fallback returns min(n, catalog size) distinct breeds in random order.
func (m *Matcher) Fallback(n int) []Breed {
	return m.pick(n, "")
}

// Companions returns up to n distinct random breeds other than primary.
func (m *Matcher) Companions(primary Breed, n int) []Breed {
	return m.pick(n, primary.ID)
}

func (m *Matcher) pick(n int, excludeID string) []Breed {
	if n <= 0 {
		return nil
	}

	m.mu.Lock()
	perm := m.rng.Perm(m.catalog.Len())
	m.mu.Unlock()

	out := make([]Breed, 0, n)
	for _, i := range perm {
		if len(out) == n {
			break
		}
		b := m.catalog.At(i)
		if b.ID == excludeID {
			continue
		}
		out = append(out, b)
	}
	return out
}
