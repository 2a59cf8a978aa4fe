package catalog

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Dataset is one loaded version of the catalog. It is never mutated after
// NewDataset returns; reloads build a new Dataset.
type Dataset struct {
	categories []Category
	products   []Product
	byID       map[string]int
}

// NewDataset validates records and fills structured dimensions from the
// display text where a record has none.
func NewDataset(categories []Category, products []Product) (*Dataset, error) {
	ds := &Dataset{
		categories: slices.Clone(categories),
		products:   make([]Product, 0, len(products)),
		byID:       make(map[string]int, len(products)),
	}
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		if strings.TrimSpace(c.Slug) == "" {
			return nil, errors.New("category slug is required")
		}
		known[c.Slug] = true
	}
	for _, c := range categories {
		if c.Parent != "" && !known[c.Parent] {
			return nil, errors.Errorf("category %q: unknown parent %q", c.Slug, c.Parent)
		}
	}
	for _, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, errors.Errorf("product %q: id is required", p.Name)
		}
		if _, dup := ds.byID[p.ID]; dup {
			return nil, errors.Errorf("product %q: duplicate id", p.ID)
		}
		if len(known) > 0 && !known[p.Category] {
			return nil, errors.Errorf("product %q: unknown category %q", p.ID, p.Category)
		}
		if p.Price.IsNegative() {
			return nil, errors.Errorf("product %q: negative price", p.ID)
		}
		p.Availability = NormalizeAvailability(string(p.Availability))
		if p.Dimensions == nil {
			if d, ok := ParseDimensions(p.DimensionsText); ok {
				p.Dimensions = &d
			}
		}
		ds.byID[p.ID] = len(ds.products)
		ds.products = append(ds.products, p)
	}
	return ds, nil
}

func (ds *Dataset) Products() []Product     { return ds.products }
func (ds *Dataset) Categories() []Category { return ds.categories }

func (ds *Dataset) ByID(id string) (Product, bool) {
	i, ok := ds.byID[id]
	if !ok {
		return Product{}, false
	}
	return ds.products[i], true
}
