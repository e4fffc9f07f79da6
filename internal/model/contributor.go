package model

// Contributor is a registered contributor. The tier is recomputed on every score update.
type Contributor struct {
	Address       Address  `cbor:"address" json:"address"`
	Tier          Tier     `cbor:"tier" json:"tier"`
	Score         uint32   `cbor:"score" json:"score"`
	Points        uint64   `cbor:"points" json:"points"`
	Rewards       Amount   `cbor:"rewards" json:"rewards"`
	JoinedAt      int64    `cbor:"joinedAt" json:"joinedAt"`
	LastRewardAt  int64    `cbor:"lastRewardAt" json:"lastRewardAt"`
	Registrations uint32   `cbor:"registrations" json:"registrations"`
	Trail         []string `cbor:"trail" json:"trail"`
}

// Eligible reports whether the contributor can be selected for monthly rewards.
func (c Contributor) Eligible() bool {
	return c.Tier != TierNone
}

// Ranks reports whether c ranks strictly above other: higher score first,
// then earlier join time, then lower address.
func (c Contributor) Ranks(other Contributor) bool {
	if c.Score != other.Score {
		return c.Score > other.Score
	}
	if c.JoinedAt != other.JoinedAt {
		return c.JoinedAt < other.JoinedAt
	}
	return c.Address < other.Address
}
