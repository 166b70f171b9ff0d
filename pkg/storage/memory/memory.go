// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory is an in-process state.Store. Contents are lost on exit.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
)

func init() {
	state.Providers.Register("memory", func(_ context.Context, _ map[string]string) (state.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory implementation of state.Store
type Store struct {
	mu    sync.RWMutex
	lists map[state.List][]catalog.Breed
}

// New creates a new in-memory store
func New() *Store {
	return &Store{lists: make(map[state.List][]catalog.Breed)}
}

// Add appends breed unless its dedup key is already present.
func (s *Store) Add(_ context.Context, list state.List, breed catalog.Breed) (bool, error) {
	if err := state.CheckList(list); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := state.DedupKey(list, breed)
	for _, b := range s.lists[list] {
		if state.DedupKey(list, b) == key {
			return false, nil
		}
	}
	s.lists[list] = append(s.lists[list], clone(breed))
	return true, nil
}

// Remove deletes the entry with breedID.
func (s *Store) Remove(_ context.Context, list state.List, breedID string) error {
	if err := state.CheckList(list); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.lists[list]
	i := slices.IndexFunc(entries, func(b catalog.Breed) bool { return b.ID == breedID })
	if i < 0 {
		return state.ErrNotFound
	}
	s.lists[list] = slices.Delete(entries, i, i+1)
	return nil
}

// List returns a copy of the entries in insertion order.
func (s *Store) List(_ context.Context, list state.List) ([]catalog.Breed, error) {
	if err := state.CheckList(list); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Breed, len(s.lists[list]))
	for i, b := range s.lists[list] {
		out[i] = clone(b)
	}
	return out, nil
}

// Contains reports whether breedID is in list.
func (s *Store) Contains(_ context.Context, list state.List, breedID string) (bool, error) {
	if err := state.CheckList(list); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.ContainsFunc(s.lists[list], func(b catalog.Breed) bool { return b.ID == breedID }), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(b catalog.Breed) catalog.Breed {
	b.Colors = slices.Clone(b.Colors)
	return b
}
