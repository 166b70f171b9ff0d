// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRemote_FetchesOnceAndCaches(t *testing.T) {
	srv, calls := keyServer(t, http.StatusOK, `{"apiKey":"sk-test"}`)
	p := NewRemote(srv.URL, time.Second, WithHTTPClient(srv.Client()))

	for range 5 {
		key, err := p.Credential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sk-test", key)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemote_ConcurrentFirstCallersShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		fmt.Fprint(w, `{"apiKey":"sk-shared"}`)
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, 5*time.Second, WithHTTPClient(srv.Client()))

	const n = 16
	var wg sync.WaitGroup
	keys := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys[i], errs[i] = p.Credential(context.Background())
		}()
	}
	// Give the goroutines time to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, "sk-shared", keys[i])
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemote_MalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":      `<html>nope</html>`,
		"wrong field":   `{"key":"sk"}`,
		"extra field":   `{"apiKey":"sk","other":1}`,
		"empty key":     `{"apiKey":""}`,
		"null key":      `{"apiKey":null}`,
		"number key":    `{"apiKey":42}`,
		"array":         `["sk"]`,
		"trailing data": `{"apiKey":"sk"}{"apiKey":"sk2"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := keyServer(t, http.StatusOK, body)
			p := NewRemote(srv.URL, time.Second, WithHTTPClient(srv.Client()))

			_, err := p.Credential(context.Background())
			require.Error(t, err)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, KindMalformedResponse, fe.Kind)
			assert.True(t, errors.Is(err, &FetchError{Kind: KindMalformedResponse}))
		})
	}
}

func TestRemote_StatusIsTransportFailureAndNotCached(t *testing.T) {
	srv, calls := keyServer(t, http.StatusServiceUnavailable, `{}`)
	p := NewRemote(srv.URL, time.Second, WithHTTPClient(srv.Client()))

	_, err := p.Credential(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &FetchError{Kind: KindTransport}))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)

	_, err = p.Credential(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load(), "failures must not be cached")
}

func TestRemote_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "ftp://example.com/key.json", "/relative/path"} {
		p := NewRemote(endpoint, time.Second)
		_, err := p.Credential(context.Background())
		require.Error(t, err, endpoint)
		assert.True(t, errors.Is(err, &FetchError{Kind: KindInvalidEndpoint}), "endpoint %q: %v", endpoint, err)
	}
}

func TestRemote_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewRemote(url, time.Second)
	_, err := p.Credential(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &FetchError{Kind: KindTransport}))
}

func TestRemote_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"apiKey":"sk-late"}`)
	}))
	defer srv.Close()
	defer close(release)

	p := NewRemote(srv.URL, 5*time.Second, WithHTTPClient(srv.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Credential(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) RecordCredentialFetch(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func TestRemote_Observer(t *testing.T) {
	srv, _ := keyServer(t, http.StatusOK, `{"apiKey":"sk"}`)
	obs := &recordingObserver{}
	p := NewRemote(srv.URL, time.Second, WithHTTPClient(srv.Client()), WithObserver(obs))

	_, err := p.Credential(context.Background())
	require.NoError(t, err)
	_, err = p.Credential(context.Background())
	require.NoError(t, err)

	require.Len(t, obs.errs, 1)
	assert.NoError(t, obs.errs[0])
}

func TestStatic(t *testing.T) {
	key, err := Static("sk-static").Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-static", key)

	_, err = Static("").Credential(context.Background())
	assert.Error(t, err)
}
