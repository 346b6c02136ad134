// Package catalog reads catalogue seed files and imports them into the store.
package catalog

import (
	"context"
	"strings"
)

// Entry is one product of a catalogue file together with its category.
type Entry struct {
	Category string
	Product  string
}

// Catalog is the ordered, de-duplicated content of one or more catalogue files.
type Catalog struct {
	entries []Entry
	seen    map[string]struct{}
}

// NewCatalog creates an empty catalogue.
func NewCatalog() *Catalog {
	return &Catalog{seen: make(map[string]struct{})}
}

// Add appends an entry unless the same category and product were already added.
// Names compare case-insensitively. Returns false for duplicates.
func (c *Catalog) Add(e Entry) bool {
	key := strings.ToLower(e.Category) + ";" + strings.ToLower(e.Product)
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	c.entries = append(c.entries, e)
	return true
}

// Merge appends every entry of other.
func (c *Catalog) Merge(other *Catalog) {
	for _, e := range other.entries {
		c.Add(e)
	}
}

// Entries returns the entries in file order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Categories returns the distinct category names in order of first appearance.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range c.entries {
		key := strings.ToLower(e.Category)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, e.Category)
	}
	return names
}

// Size returns the number of entries.
func (c *Catalog) Size() int {
	return len(c.entries)
}

// Loader defines the interface for loading catalogue files.
type Loader interface {
	// Load reads a gzipped catalogue file and returns its entries.
	Load(ctx context.Context, path string) (*Catalog, error)
}
