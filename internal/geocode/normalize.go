package geocode

import "strings"

// Norm canonicalizes an address component: trimmed, uppercased, internal
// whitespace collapsed to single spaces.
func Norm(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// LooseKey builds the block|street lookup key.
func LooseKey(block, street string) string {
	return Norm(block) + "|" + Norm(street)
}

// ExactKey builds the block|street|town lookup key.
func ExactKey(block, street, town string) string {
	return LooseKey(block, street) + "|" + Norm(town)
}

// AddressKey identifies a flat by its normalized address components. Town is
// optional; when empty, lookups skip the exact index.
type AddressKey struct {
	Block  string `json:"block"`
	Street string `json:"street"`
	Town   string `json:"town,omitempty"`
}

// Normalized returns a copy with every component canonicalized.
func (k AddressKey) Normalized() AddressKey {
	return AddressKey{Block: Norm(k.Block), Street: Norm(k.Street), Town: Norm(k.Town)}
}

// String returns the canonical block|street|town form used as a cache key.
func (k AddressKey) String() string {
	return ExactKey(k.Block, k.Street, k.Town)
}
