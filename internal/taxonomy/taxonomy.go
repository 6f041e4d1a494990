// Package taxonomy loads and persists the category taxonomy.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/goccy/go-yaml"
)

type document struct {
	Categories []model.Category `json:"categories" yaml:"categories"`
}

// Parse decodes a taxonomy document. JSON is accepted as a subset of YAML.
func Parse(data []byte) (*model.Taxonomy, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: empty document", common.ErrInvalidTaxonomy)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidTaxonomy, err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", common.ErrInvalidTaxonomy)
	}

	tax, err := model.NewTaxonomy(doc.Categories)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidTaxonomy, err)
	}
	return tax, nil
}

// LoadFile reads a taxonomy from a .json, .yaml or .yml file.
func LoadFile(path string) (*model.Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy %s: %w", path, err)
	}

	tax, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// Marshal encodes the taxonomy in the format implied by the file extension.
func Marshal(tax *model.Taxonomy, path string) ([]byte, error) {
	doc := document{Categories: tax.Categories}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(doc)
	default:
		return json.MarshalIndent(doc, "", "  ")
	}
}

// SaveFile writes the taxonomy to path, replacing any previous file atomically.
func SaveFile(tax *model.Taxonomy, path string) error {
	data, err := Marshal(tax, path)
	if err != nil {
		return fmt.Errorf("failed to encode taxonomy: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create taxonomy directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write taxonomy: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace taxonomy: %w", err)
	}
	return nil
}

// SupportedFile reports whether name has an extension the loader understands.
func SupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
