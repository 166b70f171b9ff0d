// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package state defines the persistent per-user breed collections: saved
// favorites, identification history and custom breeds.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/provider"
)

// DefaultCustomImageURL is shown for custom breeds added without a photo.
const DefaultCustomImageURL = "https://upload.wikimedia.org/wikipedia/commons/thumb/6/6e/Chicken_silhouette.svg/512px-Chicken_silhouette.svg.png"

// DefaultCustomHabitat is the habitat recorded for custom breeds.
const DefaultCustomHabitat = "Backyard"

// ErrNotFound is returned when a breed is not present in a list.
var ErrNotFound = errors.New("breed not found")

// List names one collection.
type List string

const (
	// Saved holds favorites, unique by breed ID.
	Saved List = "saved"
	// Identified holds identification history, unique by breed name.
	Identified List = "identified"
	// Custom holds user-defined breeds.
	Custom List = "custom"
)

// Lists returns every known list.
func Lists() []List { return []List{Saved, Identified, Custom} }

// Valid reports whether l is a known list.
func (l List) Valid() bool {
	switch l {
	case Saved, Identified, Custom:
		return true
	}
	return false
}

// DedupKey is the value two entries of l must share to be duplicates.
func DedupKey(l List, b catalog.Breed) string {
	if l == Identified {
		return b.Name
	}
	return b.ID
}

// Store persists breed collections in insertion order.
type Store interface {
	// Add appends breed to list. It returns false when an entry with the
	// same dedup key is already present.
	Add(ctx context.Context, list List, breed catalog.Breed) (bool, error)
	// Remove deletes the entry with breedID, or returns ErrNotFound.
	Remove(ctx context.Context, list List, breedID string) error
	// List returns the entries of list, oldest first.
	List(ctx context.Context, list List) ([]catalog.Breed, error)
	// Contains reports whether an entry with breedID is in list.
	Contains(ctx context.Context, list List, breedID string) (bool, error)
	Close() error
}

// Providers is the registry of collection store backends. Implementations
// register themselves from init.
var Providers = provider.NewRegistry[Store]("store")

// CheckList returns an error for unknown lists.
func CheckList(l List) error {
	if !l.Valid() {
		return fmt.Errorf("unknown list %q", l)
	}
	return nil
}

// ValidationError lists the missing fields of a custom breed.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// NewCustomBreed validates b as a user-defined breed and fills in the
// defaults: a fresh ID, the placeholder image, the backyard habitat and a
// single color equal to the name.
func NewCustomBreed(b catalog.Breed) (catalog.Breed, error) {
	b.Name = strings.TrimSpace(b.Name)

	required := []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"description", b.Description},
		{"origin", b.Origin},
		{"egg_production", b.EggProduction},
		{"temperament", b.Temperament},
		{"size", b.Size},
		{"purpose", b.Purpose},
		{"lifespan", b.Lifespan},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return catalog.Breed{}, &ValidationError{Missing: missing}
	}

	b.ID = uuid.NewString()
	b.Custom = true
	if b.ImageURL == "" {
		b.ImageURL = DefaultCustomImageURL
	}
	if b.Habitat == "" {
		b.Habitat = DefaultCustomHabitat
	}
	if len(b.Colors) == 0 {
		b.Colors = []string{b.Name}
	}
	return b, nil
}
