package model

import "strings"

// Tier is the categorical rank carried by category/title rows.
type Tier string

const (
	TierNone     Tier = ""
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
)

// ParseTier maps a raw tier cell onto a known tier. Matching is
// case-insensitive; unknown values return TierNone and ok=false.
func ParseTier(raw string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return TierNone, true
	case "platinum":
		return TierPlatinum, true
	case "gold":
		return TierGold, true
	case "silver":
		return TierSilver, true
	case "bronze":
		return TierBronze, true
	default:
		return TierNone, false
	}
}

// IsValid reports whether t is one of the known tiers (TierNone included).
func (t Tier) IsValid() bool {
	switch t {
	case TierNone, TierPlatinum, TierGold, TierSilver, TierBronze:
		return true
	}
	return false
}

// String returns the display form of the tier ("Gold", "" for none).
func (t Tier) String() string {
	if t == TierNone {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// EdgeRecord is one normalized row of an edge list.
type EdgeRecord struct {
	Source string
	Target string

	// Weight is the parsed weight. It is 0 when WeightValid is false.
	Weight      float64
	WeightValid bool

	Tier             Tier
	IsCategoryMarker bool

	// Origin names the source the row came from (file, URL or query name).
	Origin string
	// Row is the 1-based data row number within Origin.
	Row int
}

// IsSelfLoop reports whether both endpoints are the same node.
func (r EdgeRecord) IsSelfLoop() bool {
	return r.Source == r.Target
}
