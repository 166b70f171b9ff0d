// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider maps backend names from the config file ("memory",
// "sqlite", "postgres", "filesystem", "s3") to constructors.
//
// state.Providers and filestore.Providers are the two registries. Backend
// packages add themselves from init, so cmd/server only needs a blank import
// per backend it ships.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a backend from config parameters such as "dsn" or
// "bucket". Unknown keys are ignored.
type Factory[T any] func(ctx context.Context, params map[string]string) (T, error)

// Registry holds the factories for one backend interface.
type Registry[T any] struct {
	subsystem string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry. subsystem names the config
// section in error messages.
func NewRegistry[T any](subsystem string) *Registry[T] {
	return &Registry[T]{
		subsystem: subsystem,
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a factory under name. Registering a name twice panics.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("provider: %s backend %q already registered", r.subsystem, name))
	}
	r.factories[name] = f
}

// New builds the backend registered as name. An unknown name is an error
// that lists the registered ones.
func (r *Registry[T]) New(ctx context.Context, name string, params map[string]string) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s provider: %q (available: %v)", r.subsystem, name, r.Available())
	}
	return f(ctx, params)
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Available returns the registered names, sorted.
func (r *Registry[T]) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
