// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/vision"
	"github.com/chickenai/breeds-gw/pkg/credential"
	"github.com/chickenai/breeds-gw/pkg/storage/memory"
)

// End-to-end runs through the real vision client against fake credential
// and completion endpoints.

type stack struct {
	engine      *Engine
	modelCalls  *atomic.Int32
	credCalls   *atomic.Int32
	credentials *credential.Remote
}

func photo(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 30), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStack(t *testing.T, status int, body string) *stack {
	t.Helper()
	var credCalls, modelCalls atomic.Int32

	keys := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"apiKey":"sk-e2e"}`)
	}))
	t.Cleanup(keys.Close)

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		modelCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(model.Close)

	creds := credential.NewRemote(keys.URL, time.Second, credential.WithHTTPClient(keys.Client()))
	cat := testCatalog(t)
	client := vision.New(vision.Config{BaseURL: model.URL + "/v1/"}, cat.Names(), creds,
		vision.WithHTTPClient(model.Client()))

	e, err := New(cat, client, memory.New(), seeded(9))
	require.NoError(t, err)
	return &stack{engine: e, modelCalls: &modelCalls, credCalls: &credCalls, credentials: creds}
}

func content(label string) string {
	return fmt.Sprintf(`{"id":"c","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
		`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`, label)
}

func TestScenario_ServerErrorFallsBack(t *testing.T) {
	s := newStack(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
	ctx := context.Background()

	for range 2 {
		res, err := s.engine.Identify(ctx, &Request{Image: photo(t)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeFallback, res.Outcome)
		assert.Equal(t, vision.KindUnexpectedStatus, res.FailureKind)
		require.Len(t, res.Breeds, 3)
		assertDistinct(t, res.Breeds)
	}

	// The cached credential survives model failures.
	assert.Equal(t, int32(1), s.credCalls.Load())
	key, err := s.credentials.Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-e2e", key)
	assert.Equal(t, int32(1), s.credCalls.Load())
}

func TestScenario_ExactLabelMatches(t *testing.T) {
	for name, label := range map[string]string{"exact": "Silkie", "padded": "  Silkie\n"} {
		t.Run(name, func(t *testing.T) {
			s := newStack(t, http.StatusOK, content(label))

			res, err := s.engine.Identify(context.Background(), &Request{Image: photo(t)})
			require.NoError(t, err)
			assert.Equal(t, OutcomeMatched, res.Outcome)
			require.Len(t, res.Breeds, 3)
			assert.Equal(t, "Silkie", res.Breeds[0].Name)
		})
	}
}

func TestScenario_UnknownLabelIsNotAnError(t *testing.T) {
	s := newStack(t, http.StatusOK, content("Golden Silkie"))

	res, err := s.engine.Identify(context.Background(), &Request{Image: photo(t)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubstituted, res.Outcome)
	_, member := s.engine.Catalog().ByName(res.Breeds[0].Name)
	assert.True(t, member)
}

func TestScenario_EncodingFailureMakesNoRequests(t *testing.T) {
	s := newStack(t, http.StatusOK, content("Silkie"))

	res, err := s.engine.Identify(context.Background(), &Request{Image: []byte{}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, vision.KindImageEncoding, res.FailureKind)
	assert.Len(t, res.Breeds, catalog.FallbackSize)
	assert.Zero(t, s.modelCalls.Load())
	assert.Zero(t, s.credCalls.Load())
}
