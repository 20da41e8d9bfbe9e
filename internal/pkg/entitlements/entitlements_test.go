package entitlements

import "testing"

func TestNormalizeTier(t *testing.T) {
	cases := map[string]Tier{
		"pro":       TierPro,
		" Pro ":     TierPro,
		"BUSINESS":  TierBusiness,
		"free":      TierFree,
		"":          TierFree,
		"platinum":  TierFree,
		"pro-trial": TierFree,
	}
	for in, want := range cases {
		if got := NormalizeTier(in); got != want {
			t.Errorf("NormalizeTier(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTierRankOrdering(t *testing.T) {
	if !(TierRank(TierFree) < TierRank(TierPro) && TierRank(TierPro) < TierRank(TierBusiness)) {
		t.Error("expected free < pro < business")
	}
}

func TestIsKnownTier(t *testing.T) {
	for _, known := range []string{"free", "pro", "business", " Pro "} {
		if !IsKnownTier(known) {
			t.Errorf("expected %q to be known", known)
		}
	}
	for _, unknown := range []string{"", "platinum", "enterprise"} {
		if IsKnownTier(unknown) {
			t.Errorf("expected %q to be unknown", unknown)
		}
	}
}
