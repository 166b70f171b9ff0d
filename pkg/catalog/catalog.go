// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the bundled chicken breed and article reference data
// and the matcher that resolves model labels against it.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
)

//go:embed data/breeds.json data/articles.json
var bundled embed.FS

// breedNamespace seeds the name-derived IDs of built-in breeds so that they
// are stable across restarts.
var breedNamespace = uuid.MustParse("6f1c5f3e-9a0d-4b8e-8f6b-6c9c2b1e0a51")

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(l.Latitude, l.Longitude)
}

// Breed is one catalog entry.
type Breed struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ImageURL      string   `json:"image_url"`
	Description   string   `json:"description"`
	WikipediaLink string   `json:"wikipedia_link"`
	Habitat       string   `json:"habitat"`
	Origin        string   `json:"origin"`
	Location      Location `json:"location"`
	EggProduction string   `json:"egg_production"`
	Temperament   string   `json:"temperament"`
	Size          string   `json:"size"`
	Purpose       string   `json:"purpose"`
	Lifespan      string   `json:"lifespan"`
	Colors        []string `json:"colors"`
	Custom        bool     `json:"custom,omitempty"`
}

// Article is a static reading item.
type Article struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ImageURL      string `json:"image_url"`
	Text          string `json:"text"`
	MinutesToRead int    `json:"minutes_to_read"`
}

// bundledBreed is the on-disk shape of data/breeds.json.
type bundledBreed struct {
	Name          string   `json:"name"`
	ImageURL      string   `json:"image_url"`
	Description   string   `json:"description"`
	WikipediaLink string   `json:"wikipedia_link"`
	Habitat       string   `json:"habitat"`
	Origin        string   `json:"origin"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	EggProduction string   `json:"egg_production"`
	Temperament   string   `json:"temperament"`
	Size          string   `json:"size"`
	Purpose       string   `json:"purpose"`
	Lifespan      string   `json:"lifespan"`
	Colors        []string `json:"colors"`
}

// Catalog is an immutable, ordered set of breeds. Names are unique.
type Catalog struct {
	breeds []Breed
	byName map[string]int
	byID   map[string]int
}

// New builds a catalog from breeds in the given order. It rejects empty
// input, empty names, and duplicate names or IDs.
func New(breeds []Breed) (*Catalog, error) {
	if len(breeds) == 0 {
		return nil, fmt.Errorf("catalog: no breeds")
	}
	c := &Catalog{
		breeds: make([]Breed, len(breeds)),
		byName: make(map[string]int, len(breeds)),
		byID:   make(map[string]int, len(breeds)),
	}
	copy(c.breeds, breeds)
	for i, b := range c.breeds {
		if b.Name == "" {
			return nil, fmt.Errorf("catalog: breed %d has no name", i)
		}
		if b.ID == "" {
			b.ID = BuiltinID(b.Name)
			c.breeds[i] = b
		}
		if _, dup := c.byName[b.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate breed name %q", b.Name)
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate breed id %q", b.ID)
		}
		c.byName[b.Name] = i
		c.byID[b.ID] = i
	}
	return c, nil
}

// Builtin loads the bundled breed catalog.
func Builtin() (*Catalog, error) {
	data, err := bundled.ReadFile("data/breeds.json")
	if err != nil {
		return nil, fmt.Errorf("read bundled breeds: %w", err)
	}
	var raw []bundledBreed
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse bundled breeds: %w", err)
	}

	breeds := make([]Breed, 0, len(raw))
	for _, r := range raw {
		breeds = append(breeds, Breed{
			ID:            BuiltinID(r.Name),
			Name:          r.Name,
			ImageURL:      r.ImageURL,
			Description:   r.Description,
			WikipediaLink: r.WikipediaLink,
			Habitat:       r.Habitat,
			Origin:        r.Origin,
			Location:      Location{Latitude: r.Latitude, Longitude: r.Longitude},
			EggProduction: r.EggProduction,
			Temperament:   r.Temperament,
			Size:          r.Size,
			Purpose:       r.Purpose,
			Lifespan:      r.Lifespan,
			Colors:        r.Colors,
		})
	}
	return New(breeds)
}

// BuiltinID returns the stable ID of a built-in breed name.
func BuiltinID(name string) string {
	return uuid.NewSHA1(breedNamespace, []byte(name)).String()
}

// Len returns the number of breeds.
func (c *Catalog) Len() int { return len(c.breeds) }

// Breeds returns a copy of all breeds in catalog order.
func (c *Catalog) Breeds() []Breed {
	out := make([]Breed, len(c.breeds))
	copy(out, c.breeds)
	return out
}

// At returns the breed at index i.
func (c *Catalog) At(i int) Breed { return c.breeds[i] }

// Names returns the breed names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.breeds))
	for i, b := range c.breeds {
		names[i] = b.Name
	}
	return names
}

// ByName looks up a breed by exact, case-sensitive name.
func (c *Catalog) ByName(name string) (Breed, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Breed{}, false
	}
	return c.breeds[i], true
}

// ByID looks up a breed by ID.
func (c *Catalog) ByID(id string) (Breed, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Breed{}, false
	}
	return c.breeds[i], true
}

// Search returns breeds whose name, origin, temperament or purpose contains
// query, ignoring case. An empty query returns every breed.
func (c *Catalog) Search(query string) []Breed {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.Breeds()
	}
	var out []Breed
	for _, b := range c.breeds {
		for _, field := range []string{b.Name, b.Origin, b.Temperament, b.Purpose} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// NearbyBreed is a breed with the great-circle distance of its origin to the
// query point.
type NearbyBreed struct {
	Breed      Breed   `json:"breed"`
	DistanceKm float64 `json:"distance_km"`
}

const earthRadiusKm = 6371.0088

// Nearby returns up to limit breeds ordered by the distance of their origin
// to (lat, lon). Ties keep catalog order.
func (c *Catalog) Nearby(lat, lon float64, limit int) []NearbyBreed {
	if limit <= 0 || limit > len(c.breeds) {
		limit = len(c.breeds)
	}
	point := s2.LatLngFromDegrees(lat, lon)

	out := make([]NearbyBreed, len(c.breeds))
	for i, b := range c.breeds {
		angle := point.Distance(b.Location.latLng())
		out[i] = NearbyBreed{Breed: b, DistanceKm: angle.Radians() * earthRadiusKm}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out[:limit]
}

// Articles returns the bundled articles.
func Articles() ([]Article, error) {
	data, err := bundled.ReadFile("data/articles.json")
	if err != nil {
		return nil, fmt.Errorf("read bundled articles: %w", err)
	}
	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parse bundled articles: %w", err)
	}
	for i := range articles {
		articles[i].ID = uuid.NewSHA1(breedNamespace, []byte("article:"+articles[i].Title)).String()
	}
	return articles, nil
}

// ArticleByID finds an article in articles.
func ArticleByID(articles []Article, id string) (Article, bool) {
	for _, a := range articles {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}
