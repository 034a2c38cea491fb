package receipt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Brazilian receipts write prices as "R$ 12,50"; some SEFAZ pages use a dot.
var (
	priceRe    = regexp.MustCompile(`R\$\s*(\d+[.,]\d{2})`)
	quantityRe = regexp.MustCompile(`(?i)(\d+)\s*(?:x|un|unid|kg|g|ml|l)\b`)
	digitsRe   = regexp.MustCompile(`\d+`)
)

// ParsePrice extracts at most one monetary amount from a line. The comma
// decimal separator is normalized to a dot before parsing. Non-finite or
// negative results are treated as absent.
func ParsePrice(line string) (float64, bool) {
	m := priceRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}

	return v, true
}

// ParseQuantity extracts an integer immediately followed by a unit token
// (x, un, unid, kg, g, ml, l). Absence yields the default quantity of 1.
func ParseQuantity(line string) int {
	m := quantityRe.FindStringSubmatch(line)
	if m == nil {
		return 1
	}

	qty, err := strconv.Atoi(m[1])
	if err != nil || qty < 1 {
		return 1
	}

	return qty
}

// HasPrice reports whether the line contains a parseable price.
func HasPrice(line string) bool {
	_, ok := ParsePrice(line)
	return ok
}

// StripAmounts removes price and quantity substrings from a line, leaving
// the descriptive text.
func StripAmounts(line string) string {
	line = priceRe.ReplaceAllString(line, "")
	line = quantityRe.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// StripDigits additionally removes residual digit runs; used by the
// structural extractor where row text carries item codes.
func StripDigits(line string) string {
	return strings.TrimSpace(digitsRe.ReplaceAllString(line, ""))
}

// TruncateName trims and caps a derived name at max runes.
func TruncateName(name string, max int) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > max {
		return string(runes[:max])
	}
	return name
}
