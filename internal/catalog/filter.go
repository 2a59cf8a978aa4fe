package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type SortMode string

const (
	SortPopular   SortMode = "popular"
	SortNew       SortMode = "new"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
)

// NormalizeSort falls back to SortPopular for empty or unknown modes.
func NormalizeSort(v string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(v))); m {
	case SortNew, SortPriceAsc, SortPriceDesc:
		return m
	default:
		return SortPopular
	}
}

// Range is an inclusive interval; a nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r Range) IsZero() bool { return r.Min == nil && r.Max == nil }

func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// PriceRange is an inclusive price interval; a nil bound is open.
type PriceRange struct {
	Min *decimal.Decimal `json:"min,omitempty"`
	Max *decimal.Decimal `json:"max,omitempty"`
}

func (r PriceRange) IsZero() bool { return r.Min == nil && r.Max == nil }

func (r PriceRange) Contains(v decimal.Decimal) bool {
	if r.Min != nil && v.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// Filter is the set of facets a shopper selected. Facets combine with AND;
// a zero Filter keeps every product in popular order.
type Filter struct {
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	Price       PriceRange `json:"price"`
	Length      Range      `json:"length"`
	Width       Range      `json:"width"`
	Height      Range      `json:"height"`
	Materials   []string   `json:"materials,omitempty"`
	Colors      []string   `json:"colors,omitempty"`
	InStock     bool       `json:"in_stock"`
	Sort        SortMode   `json:"sort"`
}

func (f Filter) hasDimensions() bool {
	return !f.Length.IsZero() || !f.Width.IsZero() || !f.Height.IsZero()
}

// Match reports whether p passes every facet of f. Products without
// structured dimensions pass the dimension facets.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && !p.InCategory(f.Category) {
		return false
	}
	if f.Subcategory != "" && p.Subcategory != f.Subcategory {
		return false
	}
	if !f.Price.Contains(p.Price) {
		return false
	}
	if f.hasDimensions() && p.Dimensions != nil {
		d := p.Dimensions
		if !f.Length.Contains(d.Length) || !f.Width.Contains(d.Width) || !f.Height.Contains(d.Height) {
			return false
		}
	}
	if !anyOf(f.Materials, p.Materials) || !anyOf(f.Colors, p.Colors) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

// Apply returns the products passing f, ordered by f.Sort. The input slice
// is never modified.
func Apply(products []Product, f Filter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	SortProducts(out, f.Sort)
	return out
}

// SortProducts orders products in place. Every mode is stable, so equal
// keys keep catalog order.
func SortProducts(products []Product, mode SortMode) {
	switch NormalizeSort(string(mode)) {
	case SortPriceAsc:
		slices.SortStableFunc(products, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(products, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortNew:
		slices.SortStableFunc(products, func(a, b Product) int { return flagFirst(a.IsNew, b.IsNew) })
	default:
		slices.SortStableFunc(products, func(a, b Product) int { return flagFirst(a.IsHit, b.IsHit) })
	}
}

func flagFirst(a, b bool) int {
	return cmp.Compare(rank(a), rank(b))
}

func rank(flagged bool) int {
	if flagged {
		return 0
	}
	return 1
}

// anyOf is true when nothing is selected or values share an entry with selected.
func anyOf(selected, values []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
				return true
			}
		}
	}
	return false
}
