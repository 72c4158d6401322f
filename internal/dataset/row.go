// Package dataset models HDB resale transaction rows and the grouping
// policy that reduces them to one representative listing per block.
package dataset

import (
	"net/url"
	"strings"

	"github.com/flatfind-sg/flatfind-cli/internal/afford"
)

// FlatRow is one resale transaction as published in the resale price
// dataset. Prices stay as strings until a caller needs the number; the
// upstream API serves numeric strings and some import files carry
// currency formatting.
type FlatRow struct {
	Town           string `json:"town"`
	Block          string `json:"block"`
	StreetName     string `json:"street_name"`
	FlatType       string `json:"flat_type"`
	Month          string `json:"month"` // YYYY-MM
	ResalePrice    string `json:"resale_price"`
	RemainingLease string `json:"remaining_lease,omitempty"`
}

// Complete reports whether all fields required for scoring are present.
// RemainingLease is optional.
func (r FlatRow) Complete() bool {
	return r.Town != "" && r.Block != "" && r.StreetName != "" &&
		r.FlatType != "" && r.Month != "" && r.ResalePrice != ""
}

// Price parses the resale price, tolerating display formatting like
// "$500,000". ok is false when nothing numeric can be extracted.
func (r FlatRow) Price() (float64, bool) {
	v := afford.ParseCurrency(r.ResalePrice)
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Key builds the stable composite identity for a listing:
// block__street__flat_type__month__0, each component URL-escaped so the
// separator cannot collide with field contents. The trailing zero is a
// fixed discriminator slot.
func (r FlatRow) Key() string {
	return strings.Join([]string{
		escapeComponent(normU(r.Block)),
		escapeComponent(normU(r.StreetName)),
		escapeComponent(normU(r.FlatType)),
		escapeComponent(strings.TrimSpace(r.Month)),
		"0",
	}, "__")
}

// GroupKey identifies the physical block: block|street|town.
func (r FlatRow) GroupKey() string {
	return normU(r.Block) + "|" + normU(r.StreetName) + "|" + normU(r.Town)
}

func escapeComponent(s string) string {
	// QueryEscape encodes spaces as "+"; composite keys use %20.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func normU(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
