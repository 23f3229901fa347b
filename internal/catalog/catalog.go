// Package catalog holds the static reference data of expected quality
// parameters per product type. The workflow engine seeds simulated checks
// from it; it never writes back.
package catalog

import (
	"embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// dataFiles are loaded in this order; on duplicate keys the last loaded
// file wins.
var dataFiles = []string{
	"data/products_food.yaml",
	"data/products_general.yaml",
}

// Parameter is one expected quality parameter for a product type
type Parameter struct {
	Parameter string   `yaml:"parameter"`
	Expected  string   `yaml:"expected"`
	Unit      string   `yaml:"unit"`
	Tolerance *float64 `yaml:"tolerance"`
	MinValue  *float64 `yaml:"min_value"`
	MaxValue  *float64 `yaml:"max_value"`
}

// Entry describes one product type in the reference catalog
type Entry struct {
	Key                 string            `yaml:"-"`
	Name                string            `yaml:"name"`
	Category            string            `yaml:"category"`
	Subcategory         string            `yaml:"subcategory"`
	Description         string            `yaml:"description"`
	QualityParameters   []Parameter       `yaml:"quality_parameters"`
	StorageConditions   map[string]string `yaml:"storage_conditions"`
	ShelfLifeDays       int               `yaml:"shelf_life_days"`
	RegulatoryStandards []string          `yaml:"regulatory_standards"`
	Certifications      []string          `yaml:"certifications"`
}

type dataFile struct {
	Products map[string]Entry `yaml:"products"`
}

// Catalog is an immutable keyed lookup of reference entries
type Catalog struct {
	entries map[string]Entry
}

// Load parses and validates the embedded reference data files
func Load() (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry)}
	for _, name := range dataFiles {
		raw, err := dataFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read catalog file %s: %w", name, err)
		}
		if err := c.merge(name, raw); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// merge parses one data file into the catalog, later files overriding
// earlier ones on key collision
func (c *Catalog) merge(name string, raw []byte) error {
	var df dataFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return fmt.Errorf("parse catalog file %s: %w", name, err)
	}
	for key, entry := range df.Products {
		entry.Key = key
		if err := validate(entry); err != nil {
			return fmt.Errorf("catalog file %s, entry %q: %w", name, key, err)
		}
		c.entries[key] = entry
	}
	return nil
}

func validate(e Entry) error {
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("empty key")
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("missing name")
	}
	for i, p := range e.QualityParameters {
		if strings.TrimSpace(p.Parameter) == "" {
			return fmt.Errorf("parameter %d has no name", i)
		}
	}
	return nil
}

// Normalize converts a product display name to its catalog key form
// (lowercase, spaces to underscores)
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Lookup returns the entry for a normalized key. The boolean distinguishes
// an absent entry from one that merely has no parameters.
func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// LookupByName normalizes a display name and looks it up
func (c *Catalog) LookupByName(name string) (Entry, bool) {
	return c.Lookup(Normalize(name))
}

// Keys returns all catalog keys, sorted
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (c *Catalog) Len() int { return len(c.entries) }

// ByCategory returns all entries in a category
func (c *Catalog) ByCategory(category string) []Entry {
	var out []Entry
	for _, k := range c.Keys() {
		if c.entries[k].Category == category {
			out = append(out, c.entries[k])
		}
	}
	return out
}

// Categories returns the distinct categories, sorted
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	for _, e := range c.entries {
		seen[e.Category] = true
	}
	cats := make([]string, 0, len(seen))
	for cat := range seen {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Search matches query against key, name and description (case insensitive)
func (c *Catalog) Search(query string) []Entry {
	query = strings.ToLower(query)
	var out []Entry
	for _, k := range c.Keys() {
		e := c.entries[k]
		if strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strings.ToLower(e.Description), query) ||
			strings.Contains(k, query) {
			out = append(out, e)
		}
	}
	return out
}

// Random returns a random entry, used by the demo seeder
func (c *Catalog) Random() Entry {
	keys := c.Keys()
	return c.entries[keys[rand.Intn(len(keys))]]
}
