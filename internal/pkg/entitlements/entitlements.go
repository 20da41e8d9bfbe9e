package entitlements

import "strings"

type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// NormalizeTier maps arbitrary provider-supplied tier strings onto the known
// set; anything unrecognized falls back to free rather than failing.
func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierPro):
		return TierPro
	case string(TierBusiness):
		return TierBusiness
	default:
		return TierFree
	}
}

// TierRank orders tiers so callers can compare entitlement levels.
func TierRank(tier Tier) int {
	switch tier {
	case TierBusiness:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

// IsKnownTier reports whether the raw string names a tier we sell.
func IsKnownTier(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierFree), string(TierPro), string(TierBusiness):
		return true
	default:
		return false
	}
}
