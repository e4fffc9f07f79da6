package model

// Tier is a contributor classification derived from the composite score.
type Tier uint8

const (
	TierNone Tier = iota
	TierRecognized
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
)

var tierNames = map[Tier]string{
	TierNone:       "none",
	TierRecognized: "recognized",
	TierBronze:     "bronze",
	TierSilver:     "silver",
	TierGold:       "gold",
	TierPlatinum:   "platinum",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TierFor maps a composite score to its tier. Boundaries belong to the higher tier.
func TierFor(score uint32) Tier {
	switch {
	case score >= 90:
		return TierPlatinum
	case score >= 80:
		return TierGold
	case score >= 70:
		return TierSilver
	case score >= 60:
		return TierBronze
	case score >= 50:
		return TierRecognized
	default:
		return TierNone
	}
}

// Voting power multipliers in tenths.
const (
	MultiplierScale  = 10
	holderMultiplier = 5
)

// Multiplier returns the voting power multiplier of the tier, in tenths.
// Token holders without a tier vote at half weight.
func (t Tier) Multiplier() uint64 {
	switch t {
	case TierRecognized, TierBronze:
		return 10
	case TierSilver:
		return 20
	case TierGold:
		return 30
	case TierPlatinum:
		return 40
	default:
		return holderMultiplier
	}
}
