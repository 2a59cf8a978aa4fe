package catalog

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ParseFilter builds a Filter from query parameters. Malformed numbers and
// flags are dropped, they never make the request fail.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		Category:    strings.TrimSpace(q.Get("category")),
		Subcategory: strings.TrimSpace(q.Get("subcategory")),
		Price:       PriceRange{Min: decimalParam(q, "price_min"), Max: decimalParam(q, "price_max")},
		Length:      Range{Min: floatParam(q, "length_min"), Max: floatParam(q, "length_max")},
		Width:       Range{Min: floatParam(q, "width_min"), Max: floatParam(q, "width_max")},
		Height:      Range{Min: floatParam(q, "height_min"), Max: floatParam(q, "height_max")},
		Materials:   listParam(q, "material"),
		Colors:      listParam(q, "color"),
		Sort:        NormalizeSort(q.Get("sort")),
	}
	if v, err := cast.ToBoolE(strings.TrimSpace(q.Get("in_stock"))); err == nil {
		f.InStock = v
	}
	return f
}

// Key is a canonical form of f used for caching filtered views.
func (f Filter) Key() string {
	materials := normalizedList(f.Materials)
	colors := normalizedList(f.Colors)
	return fmt.Sprintf("c=%s|s=%s|p=%s..%s|l=%s|w=%s|h=%s|m=%s|col=%s|st=%t|o=%s",
		f.Category, f.Subcategory,
		decimalKey(f.Price.Min), decimalKey(f.Price.Max),
		rangeKey(f.Length), rangeKey(f.Width), rangeKey(f.Height),
		strings.Join(materials, ","), strings.Join(colors, ","),
		f.InStock, NormalizeSort(string(f.Sort)))
}

func decimalParam(q url.Values, key string) *decimal.Decimal {
	raw := strings.ReplaceAll(strings.TrimSpace(q.Get(key)), " ", "")
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return nil
	}
	return &d
}

func floatParam(q url.Values, key string) *float64 {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}
	f, err := cast.ToFloat64E(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return nil
	}
	return &f
}

// listParam accepts both repeated keys and comma separated values.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func normalizedList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func decimalKey(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func rangeKey(r Range) string {
	var lo, hi string
	if r.Min != nil {
		lo = cast.ToString(*r.Min)
	}
	if r.Max != nil {
		hi = cast.ToString(*r.Max)
	}
	return lo + ".." + hi
}
