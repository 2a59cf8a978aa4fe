package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Availability is the lead-time class shown next to a product.
type Availability string

const (
	AvailabilityInStock Availability = "instock"
	Availability7Days   Availability = "7days"
	Availability10Days  Availability = "10days"
)

// NormalizeAvailability maps free input onto the three known classes.
// Anything unknown is treated as made to order in 10 days.
func NormalizeAvailability(v string) Availability {
	switch Availability(strings.ToLower(strings.TrimSpace(v))) {
	case AvailabilityInStock:
		return AvailabilityInStock
	case Availability7Days:
		return Availability7Days
	default:
		return Availability10Days
	}
}

// Dimensions are outer sizes in centimetres.
type Dimensions struct {
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Category is a catalog section. Parent is empty for top-level sections.
type Category struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// Product is an immutable catalog record.
type Product struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Subcategory    string           `json:"subcategory,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	OldPrice       *decimal.Decimal `json:"old_price,omitempty"`
	Availability   Availability     `json:"availability"`
	DimensionsText string           `json:"dimensions_text,omitempty"`
	Dimensions     *Dimensions      `json:"dimensions,omitempty"`
	Stock          int              `json:"stock"`
	Materials      []string         `json:"materials,omitempty"`
	Colors         []string         `json:"colors,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	IsHit          bool             `json:"is_hit"`
	IsNew          bool             `json:"is_new"`
	IsSale         bool             `json:"is_sale"`
	Image          string           `json:"image,omitempty"`
}

// InCategory reports whether slug names the product's category or subcategory.
func (p Product) InCategory(slug string) bool {
	return slug == p.Category || (p.Subcategory != "" && slug == p.Subcategory)
}

// Flag selects one of the merchandising flags.
type Flag string

const (
	FlagHit  Flag = "hit"
	FlagNew  Flag = "new"
	FlagSale Flag = "sale"
)

func (p Product) Has(flag Flag) bool {
	switch flag {
	case FlagHit:
		return p.IsHit
	case FlagNew:
		return p.IsNew
	case FlagSale:
		return p.IsSale
	default:
		return false
	}
}
