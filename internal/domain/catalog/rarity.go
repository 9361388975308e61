package catalog

import "strings"

// Tier is a rarity bucket used by the pack generator.
type Tier int

const (
	TierNone Tier = iota
	TierCommon
	TierUncommon
	TierRare
	TierUltraRare
	TierSecretRare
)

func (t Tier) String() string {
	switch t {
	case TierCommon:
		return "common"
	case TierUncommon:
		return "uncommon"
	case TierRare:
		return "rare"
	case TierUltraRare:
		return "ultra_rare"
	case TierSecretRare:
		return "secret_rare"
	default:
		return "none"
	}
}

// rarityTiers maps every known rarity label to exactly one tier.
var rarityTiers = map[Tier][]string{
	TierCommon:   {"common"},
	TierUncommon: {"uncommon"},
	TierRare: {
		"rare",
		"rare holo",
		"rare ace",
		"rare break",
		"rare prism star",
		"rare shining",
		"rare shiny",
		"rare holo star",
		"trainer gallery rare holo",
		"black white rare",
		"legend",
		"rare prime",
		"illustration rare",
	},
	TierUltraRare: {
		"rare holo ex",
		"rare holo gx",
		"rare holo lv.x",
		"rare holo v",
		"rare holo vmax",
		"rare holo vstar",
		"ultra rare",
		"double rare",
		"rare ultra",
		"shiny rare",
		"amazing rare",
		"radiant rare",
		"classic collection",
		"ace spec rare",
		"promo",
	},
	TierSecretRare: {
		"rare shiny gx",
		"rare rainbow",
		"rare secret",
		"shiny ultra rare",
		"special illustration rare",
		"hyper rare",
	},
}

var rarityIndex = buildRarityIndex()

func buildRarityIndex() map[string]Tier {
	idx := make(map[string]Tier)
	for tier, names := range rarityTiers {
		for _, name := range names {
			idx[NormalizeRarity(name)] = tier
		}
	}
	return idx
}

// NormalizeRarity folds a rarity label for lookups.
func NormalizeRarity(rarity string) string {
	return strings.Join(strings.Fields(strings.ToLower(rarity)), " ")
}

// TierOf returns the tier for a rarity label, TierNone when the label is unmapped.
func TierOf(rarity string) Tier {
	return rarityIndex[NormalizeRarity(rarity)]
}
