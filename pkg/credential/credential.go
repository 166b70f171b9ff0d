// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential supplies the bearer key used to call the vision model.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chickenai/breeds-gw/pkg/observability/logging"
)

// DefaultTimeout bounds a single remote fetch.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of the remote document is read.
const maxBody = 64 << 10

// Provider returns a bearer credential.
type Provider interface {
	Credential(ctx context.Context) (string, error)
}

// Kind classifies a fetch failure.
type Kind string

const (
	KindInvalidEndpoint   Kind = "invalid_endpoint"
	KindTransport         Kind = "transport"
	KindMalformedResponse Kind = "malformed_response"
)

// FetchError is returned when the remote credential cannot be obtained.
type FetchError struct {
	Kind  Kind
	Cause error
}

func (e *FetchError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("credential fetch: %s", e.Kind)
	}
	return fmt.Sprintf("credential fetch: %s: %v", e.Kind, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Is matches another *FetchError of the same kind, so callers can write
// errors.Is(err, &credential.FetchError{Kind: credential.KindTransport}).
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	return ok && t.Kind == e.Kind
}

// StatusError reports a non-2xx answer from the credential endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// document is the only accepted response shape.
type document struct {
	APIKey *string `json:"apiKey"`
}

// Observer is notified after each remote fetch.
type Observer interface {
	RecordCredentialFetch(err error)
}

// Remote fetches the credential from a JSON endpoint on first use and keeps
// it in memory for the lifetime of the value. Concurrent first callers share
// one request. Failed fetches are not cached.
type Remote struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
	observer   Observer

	group singleflight.Group

	mu  sync.RWMutex
	key string
}

// RemoteOption configures a Remote provider.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the HTTP client (tests inject httptest clients).
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// WithObserver registers a fetch observer, typically the metrics sink.
func WithObserver(o Observer) RemoteOption {
	return func(r *Remote) { r.observer = o }
}

// NewRemote creates a provider for endpoint. The endpoint is validated on
// first fetch so that a misconfiguration surfaces as a FetchError.
func NewRemote(endpoint string, timeout time.Duration, opts ...RemoteOption) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Remote{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Credential returns the cached key, fetching it if needed.
func (r *Remote) Credential(ctx context.Context) (string, error) {
	if key, ok := r.cached(); ok {
		return key, nil
	}

	// The shared fetch is detached from the first caller's cancellation; the
	// HTTP client timeout bounds it instead.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("credential", func() (any, error) {
		if key, ok := r.cached(); ok {
			return key, nil
		}
		key, err := r.fetch(fetchCtx)
		if r.observer != nil {
			r.observer.RecordCredentialFetch(err)
		}
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.key = key
		r.mu.Unlock()
		r.logger.Info("Fetched model credential")
		return key, nil
	})

	select {
	case <-ctx.Done():
		return "", &FetchError{Kind: KindTransport, Cause: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("Credential fetch failed", "error", res.Err, "shared", res.Shared)
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Remote) cached() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.key, r.key != ""
}

func (r *Remote) fetch(ctx context.Context) (string, error) {
	u, err := url.ParseRequestURI(r.endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		if err == nil {
			err = fmt.Errorf("unsupported endpoint %q", r.endpoint)
		}
		return "", &FetchError{Kind: KindInvalidEndpoint, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &FetchError{Kind: KindInvalidEndpoint, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Kind: KindTransport, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", &FetchError{Kind: KindTransport, Cause: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Kind: KindTransport, Cause: &StatusError{StatusCode: resp.StatusCode}}
	}

	key, err := decode(raw)
	if err != nil {
		return "", &FetchError{Kind: KindMalformedResponse, Cause: err}
	}
	return key, nil
}

func decode(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("decode credential document: %w", err)
	}
	if dec.More() {
		return "", errors.New("trailing data after credential document")
	}
	if doc.APIKey == nil || *doc.APIKey == "" {
		return "", errors.New("apiKey missing or empty")
	}
	return *doc.APIKey, nil
}

// Static always returns the same key.
type Static string

// Credential implements Provider.
func (s Static) Credential(context.Context) (string, error) {
	if s == "" {
		return "", &FetchError{Kind: KindMalformedResponse, Cause: errors.New("static credential is empty")}
	}
	return string(s), nil
}
