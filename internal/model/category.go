// Package model defines the core domain models used throughout the application.
package model

import "fmt"

const (
	// UnknownCategoryID is the sentinel returned when the engine abstains.
	// It is never a member of a Taxonomy.
	UnknownCategoryID = "UNKNOWN"
	// UnknownCategoryName is the display name paired with UnknownCategoryID.
	UnknownCategoryName = "Unknown"
)

// Category is a valid prediction target.
type Category struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Taxonomy is the ordered, closed set of categories.
type Taxonomy struct {
	byID       map[string]int
	Categories []Category `json:"categories" yaml:"categories"`
}

// NewTaxonomy validates categories and builds the ID lookup.
func NewTaxonomy(categories []Category) (*Taxonomy, error) {
	t := &Taxonomy{
		Categories: make([]Category, len(categories)),
		byID:       make(map[string]int, len(categories)),
	}

	for i, cat := range categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category at index %d: id is required", i)
		}
		if cat.ID == UnknownCategoryID {
			return nil, fmt.Errorf("category at index %d: id %q is reserved", i, UnknownCategoryID)
		}
		if _, dup := t.byID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		if cat.Name == "" {
			cat.Name = cat.ID
		}
		cat.Keywords = append([]string(nil), cat.Keywords...)
		t.Categories[i] = cat
		t.byID[cat.ID] = i
	}

	return t, nil
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Categories)
}

// Contains reports whether id names a category in the taxonomy.
func (t *Taxonomy) Contains(id string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byID[id]
	return ok
}

// Lookup returns the category with the given id.
func (t *Taxonomy) Lookup(id string) (Category, bool) {
	if t == nil {
		return Category{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Category{}, false
	}
	return t.Categories[i], true
}

// NameOf returns the display name for id, including the unknown sentinel.
func (t *Taxonomy) NameOf(id string) string {
	if id == UnknownCategoryID {
		return UnknownCategoryName
	}
	if cat, ok := t.Lookup(id); ok {
		return cat.Name
	}
	return id
}

// IDs returns category ids in taxonomy order.
func (t *Taxonomy) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, len(t.Categories))
	for i, cat := range t.Categories {
		ids[i] = cat.ID
	}
	return ids
}
