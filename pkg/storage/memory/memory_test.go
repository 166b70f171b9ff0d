// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
	"github.com/chickenai/breeds-gw/pkg/core/state/statetest"
)

func TestConformance(t *testing.T) {
	statetest.RunConformanceTests(t, func(t *testing.T) state.Store {
		return New()
	})
}

func TestRegistered(t *testing.T) {
	s, err := state.Providers.New(context.Background(), "memory", nil)
	require.NoError(t, err)
	assert.IsType(t, &Store{}, s)
}

func TestListReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Add(ctx, state.Saved, catalog.Breed{ID: "a", Name: "A", Colors: []string{"Red"}})
	require.NoError(t, err)

	got, err := s.List(ctx, state.Saved)
	require.NoError(t, err)
	got[0].Colors[0] = "Blue"
	got[0].Name = "Z"

	again, err := s.List(ctx, state.Saved)
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].Name)
	assert.Equal(t, []string{"Red"}, again[0].Colors)
}
