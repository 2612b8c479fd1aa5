// Package importer loads and dumps the catalog and recipes as YAML.
package importer

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/recipecost/internal/apperr"
)

// File is the YAML document layout.
type File struct {
	Ingredients []Ingredient `yaml:"ingredients"`
	Products    []Product    `yaml:"products"`
}

type Ingredient struct {
	Name      string  `yaml:"name"`
	Unit      string  `yaml:"unit"`
	PackQty   float64 `yaml:"pack_qty"`
	PackPrice float64 `yaml:"pack_price"`
}

// Product lists recipe lines by ingredient name. A nil SalePrice leaves the
// stored price untouched.
type Product struct {
	Name      string            `yaml:"name"`
	SalePrice *float64          `yaml:"sale_price,omitempty"`
	Items     []Item            `yaml:"items,omitempty"`
	Slots     []Slot            `yaml:"slots,omitempty"`
	Bindings  map[string]string `yaml:"bindings,omitempty"`
}

type Item struct {
	Ingredient string  `yaml:"ingredient"`
	Qty        float64 `yaml:"qty"`
}

type Slot struct {
	Name string  `yaml:"name"`
	Qty  float64 `yaml:"qty"`
}

// LoadFile loads and parses a YAML catalog file from the given path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a File and normalizes names.
func Parse(data []byte) (*File, error) {
	var f File

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "catalog file is not valid YAML")
	}

	normalize(&f)

	return &f, nil
}

// Marshal serializes a File to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// WriteFile writes a File to the given path.
func WriteFile(f *File, path string) error {
	data, err := Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog file %s: %w", path, err)
	}

	return nil
}

func normalize(f *File) {
	for i := range f.Ingredients {
		f.Ingredients[i].Name = strings.TrimSpace(f.Ingredients[i].Name)
	}
	for i := range f.Products {
		p := &f.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		for j := range p.Items {
			p.Items[j].Ingredient = strings.TrimSpace(p.Items[j].Ingredient)
		}
		for j := range p.Slots {
			p.Slots[j].Name = strings.TrimSpace(p.Slots[j].Name)
		}
		if len(p.Bindings) > 0 {
			trimmed := make(map[string]string, len(p.Bindings))
			for slot, ing := range p.Bindings {
				trimmed[strings.TrimSpace(slot)] = strings.TrimSpace(ing)
			}
			p.Bindings = trimmed
		}
	}
}

// checkReferences reports every ingredient reference that neither the file
// nor the database (known) can satisfy, plus duplicate product names.
func checkReferences(f *File, known map[string]bool) error {
	declared := make(map[string]bool, len(known)+len(f.Ingredients))
	for name := range known {
		declared[name] = true
	}
	for _, ing := range f.Ingredients {
		declared[ing.Name] = true
	}

	var errs error
	seen := make(map[string]bool, len(f.Products))
	for _, p := range f.Products {
		if seen[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("product %q is listed twice", p.Name))
		}
		seen[p.Name] = true

		for _, item := range p.Items {
			if !declared[item.Ingredient] {
				errs = multierr.Append(errs, fmt.Errorf("product %q: unknown ingredient %q", p.Name, item.Ingredient))
			}
		}
		for _, slot := range boundSlots(p) {
			if ing := p.Bindings[slot]; !declared[ing] {
				errs = multierr.Append(errs, fmt.Errorf("product %q slot %q: unknown ingredient %q", p.Name, slot, ing))
			}
		}
	}
	return errs
}

// boundSlots returns the product's bound slot names in sorted order.
func boundSlots(p Product) []string {
	return slices.Sorted(maps.Keys(p.Bindings))
}
