package afford

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumericRe = regexp.MustCompile(`[^0-9.]`)
	leadingIntRe = regexp.MustCompile(`\d+`)
)

// ParseCurrency turns display strings like "$500,000" into a number.
// Returns nil when nothing numeric can be extracted.
func ParseCurrency(s string) *float64 {
	cleaned := nonNumericRe.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// ParseRemainingLeaseYears extracts the year count from strings like
// "70 years 03 months". Months are deliberately ignored; whole years
// are all the tenure cap needs.
func ParseRemainingLeaseYears(s string) *float64 {
	m := leadingIntRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}
