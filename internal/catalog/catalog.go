package catalog

import (
	"sync/atomic"
)

// Provider is the read-only view of the catalog consumed by the cart and
// the HTTP layer.
type Provider interface {
	Products() []Product
	Categories() []Category
	ByID(id string) (Product, bool)
	Version() uint64
}

// Catalog holds the current Dataset and swaps it atomically on reload.
type Catalog struct {
	data    atomic.Pointer[Dataset]
	version atomic.Uint64
}

var _ Provider = (*Catalog)(nil)

func New(ds *Dataset) *Catalog {
	c := &Catalog{}
	c.Replace(ds)
	return c
}

// Replace installs ds and bumps the version so cached views expire.
func (c *Catalog) Replace(ds *Dataset) {
	c.data.Store(ds)
	c.version.Add(1)
}

func (c *Catalog) Version() uint64 { return c.version.Load() }

// Products returns the shared product slice. Callers must treat it as read-only.
func (c *Catalog) Products() []Product { return c.data.Load().Products() }

func (c *Catalog) Categories() []Category { return c.data.Load().Categories() }

func (c *Catalog) ByID(id string) (Product, bool) { return c.data.Load().ByID(id) }

// ByCategory lists products in a category or subcategory, catalog order.
func (c *Catalog) ByCategory(slug string) []Product {
	var out []Product
	for _, p := range c.Products() {
		if p.InCategory(slug) {
			out = append(out, p)
		}
	}
	return out
}

// Flagged lists products carrying flag, catalog order.
func (c *Catalog) Flagged(flag Flag) []Product {
	var out []Product
	for _, p := range c.Products() {
		if p.Has(flag) {
			out = append(out, p)
		}
	}
	return out
}

// Category looks up a category by slug.
func (c *Catalog) Category(slug string) (Category, bool) {
	for _, cat := range c.Categories() {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return Category{}, false
}
