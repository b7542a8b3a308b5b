// Package catalog serves the static list of featured destinations.
//
// The list ships inside the binary (destinations.json, embedded at build
// time) and never changes at runtime. A typical lookup:
//
//	cat, err := catalog.Load()
//	if err != nil {
//		return err
//	}
//	beaches := cat.Search("beach", "")
//	paris := cat.Search(catalog.TagAll, "paris")
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

//go:embed destinations.json
var destinationsJSON []byte

// Destination is one catalog entry. The catalog is read-only and shared by
// every user; starring an entry creates a SavedDestination.
type Destination struct {
	Name        string   `json:"name"`
	Country     string   `json:"country"`
	Description string   `json:"description"`
	Rating      float64  `json:"rating"`
	BestTime    string   `json:"bestTime"`
	Tags        []string `json:"tags"`
	Weather     string   `json:"weather"`
}

// TagAll disables tag filtering, mirroring the "All" chip.
const TagAll = "all"

// Catalog is the parsed destination list plus its sorted tag set.
// It is immutable after Parse and safe for concurrent use.
type Catalog struct {
	destinations []Destination
	tags         []string
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(destinationsJSON)
}

// Parse builds a catalog from a JSON array of destinations.
//
// Every entry needs a name and a country. Tags are collected across all
// entries, de-duplicated and sorted so the chip row renders in a stable
// order.
func Parse(data []byte) (*Catalog, error) {
	var ds []Destination
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("catalog: parsing destinations: %w", err)
	}

	var tags []string
	for i, d := range ds {
		if d.Name == "" || d.Country == "" {
			return nil, fmt.Errorf("catalog: destination %d has no name or country", i)
		}
		for _, t := range d.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return &Catalog{destinations: ds, tags: tags}, nil
}

// Tags lists every tag in use, sorted.
func (c *Catalog) Tags() []string {
	return slices.Clone(c.tags)
}

// Search filters by exact tag ("" or "all" matches everything) and by a
// case-insensitive substring of name, country or description. Catalog order
// is preserved and the result is never nil.
func (c *Catalog) Search(tag, query string) []Destination {
	tag = strings.ToLower(strings.TrimSpace(tag))
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]Destination, 0, len(c.destinations))
	for _, d := range c.destinations {
		if tag != "" && tag != TagAll && !slices.Contains(d.Tags, tag) {
			continue
		}
		if query != "" && !d.matches(query) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (d Destination) matches(q string) bool {
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.Country), q) ||
		strings.Contains(strings.ToLower(d.Description), q)
}
