package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	q := url.Values{
		"category":   {"tables"},
		"price_min":  {"50 000"},
		"price_max":  {"100000,50"},
		"length_min": {"80"},
		"length_max": {"abc"},
		"height_max": {"90.5"},
		"material":   {"дуб, металл", "велюр"},
		"color":      {""},
		"in_stock":   {"true"},
		"sort":       {"PRICE-DESC"},
	}

	f := ParseFilter(q)

	assert.Equal(t, "tables", f.Category)
	require.NotNil(t, f.Price.Min)
	assert.Equal(t, "50000", f.Price.Min.String())
	require.NotNil(t, f.Price.Max)
	assert.Equal(t, "100000.5", f.Price.Max.String())
	require.NotNil(t, f.Length.Min)
	assert.Equal(t, 80.0, *f.Length.Min)
	assert.Nil(t, f.Length.Max, "malformed numbers are ignored")
	require.NotNil(t, f.Height.Max)
	assert.Equal(t, 90.5, *f.Height.Max)
	assert.Equal(t, []string{"дуб", "металл", "велюр"}, f.Materials)
	assert.Empty(t, f.Colors)
	assert.True(t, f.InStock)
	assert.Equal(t, SortPriceDesc, f.Sort)
}

func TestParseFilterIgnoresGarbage(t *testing.T) {
	f := ParseFilter(url.Values{
		"price_min": {"дорого"},
		"width_min": {"--1"},
		"in_stock":  {"maybe"},
	})

	assert.True(t, f.Price.IsZero())
	assert.True(t, f.Width.IsZero())
	assert.False(t, f.InStock)
	assert.Equal(t, SortPopular, f.Sort)
}

func TestFilterKeyIsCanonical(t *testing.T) {
	a := ParseFilter(url.Values{"material": {"Дуб", "металл"}, "sort": {""}})
	b := ParseFilter(url.Values{"material": {"металл,дуб"}, "sort": {"popular"}})
	c := ParseFilter(url.Values{"material": {"металл"}})

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
