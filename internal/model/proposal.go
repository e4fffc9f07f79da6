package model

// ProposalType selects the voting window, quorum and approval threshold of a proposal.
type ProposalType string

const (
	ProposalTactical  ProposalType = "tactical"
	ProposalStrategic ProposalType = "strategic"
	ProposalCritical  ProposalType = "critical"
)

// ProposalRules are fixed for a proposal at creation time.
type ProposalRules struct {
	Window       int64
	QuorumPct    uint64
	ThresholdPct uint64
	// FounderCoApproval requires every founder to approve before execution.
	FounderCoApproval bool
}

var proposalRules = map[ProposalType]ProposalRules{
	ProposalTactical:  {Window: Days(7), QuorumPct: 20, ThresholdPct: 51},
	ProposalStrategic: {Window: Days(14), QuorumPct: 40, ThresholdPct: 66},
	ProposalCritical:  {Window: Days(14), QuorumPct: 40, ThresholdPct: 66, FounderCoApproval: true},
}

// Rules returns the rules for the proposal type.
func (t ProposalType) Rules() (ProposalRules, bool) {
	r, ok := proposalRules[t]
	return r, ok
}

// ProposalStatus is the lifecycle state of a proposal. Only Pending, Executed and
// Cancelled are stored, the rest are derived from time and tallies.
type ProposalStatus string

const (
	StatusPending   ProposalStatus = "pending"
	StatusActive    ProposalStatus = "active"
	StatusPassed    ProposalStatus = "passed"
	StatusFailed    ProposalStatus = "failed"
	StatusExecuted  ProposalStatus = "executed"
	StatusCancelled ProposalStatus = "cancelled"
)

// ActionKind is the effect applied when a proposal is executed.
type ActionKind string

const (
	ActionNone          ActionKind = ""
	ActionTreasuryGrant ActionKind = "treasury_grant"
	ActionMint          ActionKind = "mint"
)

// ProposalAction is the optional effect of an executed proposal.
type ProposalAction struct {
	Kind   ActionKind `cbor:"kind" json:"kind"`
	Target Address    `cbor:"target,omitempty" json:"target,omitempty"`
	Amount Amount     `cbor:"amount,omitempty" json:"amount,omitempty"`
}

// Proposal is a governance proposal.
type Proposal struct {
	ID               uint64         `cbor:"id" json:"id"`
	Proposer         Address        `cbor:"proposer" json:"proposer"`
	Description      string         `cbor:"description" json:"description"`
	Type             ProposalType   `cbor:"type" json:"type"`
	Action           ProposalAction `cbor:"action" json:"action"`
	QuorumPct        uint64         `cbor:"quorumPct" json:"quorumPct"`
	ThresholdPct     uint64         `cbor:"thresholdPct" json:"thresholdPct"`
	FounderApproval  bool           `cbor:"founderApproval" json:"founderApproval"`
	CreatedAt        int64          `cbor:"createdAt" json:"createdAt"`
	VotingStartsAt   int64          `cbor:"votingStartsAt" json:"votingStartsAt"`
	Deadline         int64          `cbor:"deadline" json:"deadline"`
	SupplySnapshot   Amount         `cbor:"supplySnapshot" json:"supplySnapshot"`
	For              Amount         `cbor:"for" json:"for"`
	Against          Amount         `cbor:"against" json:"against"`
	Abstain          Amount         `cbor:"abstain" json:"abstain"`
	FounderApprovals []Address      `cbor:"founderApprovals" json:"founderApprovals"`
	Status           ProposalStatus `cbor:"status" json:"status"`
	ExecutedAt       int64          `cbor:"executedAt" json:"executedAt"`
}

// TotalVotes is the voting power cast on the proposal.
func (p Proposal) TotalVotes() Amount {
	return SaturatingAdd(SaturatingAdd(p.For, p.Against), p.Abstain)
}

// QuorumReached reports whether total votes >= quorum% of the supply snapshot.
func (p Proposal) QuorumReached() bool {
	return ProductAtLeast(p.TotalVotes(), 100, p.QuorumPct, p.SupplySnapshot)
}

// ThresholdReached reports whether for/(for+against) >= threshold%.
func (p Proposal) ThresholdReached() bool {
	decisive := SaturatingAdd(p.For, p.Against)
	if decisive == 0 {
		return false
	}
	return ProductAtLeast(p.For, 100, p.ThresholdPct, decisive)
}

// ApprovedByFounder reports whether founder co-approved the proposal.
func (p Proposal) ApprovedByFounder(founder Address) bool {
	for _, f := range p.FounderApprovals {
		if f == founder {
			return true
		}
	}
	return false
}

// StatusAt derives the lifecycle status of the proposal at time now.
func (p Proposal) StatusAt(now int64) ProposalStatus {
	switch {
	case p.Status == StatusExecuted || p.Status == StatusCancelled:
		return p.Status
	case now < p.VotingStartsAt:
		return StatusPending
	case now < p.Deadline:
		return StatusActive
	case p.QuorumReached() && p.ThresholdReached():
		return StatusPassed
	default:
		return StatusFailed
	}
}

// VoteType is the support expressed by a vote.
type VoteType string

const (
	VoteFor     VoteType = "for"
	VoteAgainst VoteType = "against"
	VoteAbstain VoteType = "abstain"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == VoteFor || v == VoteAgainst || v == VoteAbstain
}

// Vote is a recorded vote with the voting power frozen at proposal creation.
type Vote struct {
	ProposalID uint64   `cbor:"proposalID" json:"proposalID"`
	Voter      Address  `cbor:"voter" json:"voter"`
	Support    VoteType `cbor:"support" json:"support"`
	Power      Amount   `cbor:"power" json:"power"`
	CastAt     int64    `cbor:"castAt" json:"castAt"`
}
