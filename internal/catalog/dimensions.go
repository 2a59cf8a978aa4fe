package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Legacy records carry sizes only as display text such as "180×80×90 см".
// The patterns accept the multiplication sign, latin x, cyrillic х and *.
const (
	num = `(\d+(?:[.,]\d+)?)`
	sep = `\s*[×xXхХ*]\s*`
)

var (
	diameterPattern = regexp.MustCompile(`[Øø⌀]\s*` + num + sep + num)
	threePattern    = regexp.MustCompile(num + sep + num + sep + num)
	twoPattern      = regexp.MustCompile(num + sep + num)
)

// ParseDimensions extracts sizes from display text. Diameter notation
// "Ø80×75" yields length = width = 80 and height = 75, "L×W×H" maps
// directly and "L×W" leaves height at zero. ok is false when nothing matches.
func ParseDimensions(text string) (Dimensions, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Dimensions{}, false
	}
	if m := diameterPattern.FindStringSubmatch(text); m != nil {
		d, h := parseNumber(m[1]), parseNumber(m[2])
		return Dimensions{Length: d, Width: d, Height: h}, true
	}
	if m := threePattern.FindStringSubmatch(text); m != nil {
		return Dimensions{Length: parseNumber(m[1]), Width: parseNumber(m[2]), Height: parseNumber(m[3])}, true
	}
	if m := twoPattern.FindStringSubmatch(text); m != nil {
		return Dimensions{Length: parseNumber(m[1]), Width: parseNumber(m[2])}, true
	}
	return Dimensions{}, false
}

// the patterns only capture digits with an optional fraction
func parseNumber(s string) float64 {
	f, _ := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	return f
}
