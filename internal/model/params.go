package model

// Params are set once at genesis and stored in state.
type Params struct {
	Governance        []Address `cbor:"governance" yaml:"governance" json:"governance"`
	Founders          []Address `cbor:"founders" yaml:"founders" json:"founders"`
	Verifiers         []Address `cbor:"verifiers" yaml:"verifiers" json:"verifiers"`
	VerifierQuorum    uint32    `cbor:"verifierQuorum" yaml:"verifierQuorum" json:"verifierQuorum"`
	MonthlyRewardPool Amount    `cbor:"monthlyRewardPool" yaml:"monthlyRewardPool" json:"monthlyRewardPool"`
	VotingDelay       int64     `cbor:"votingDelay" yaml:"votingDelay" json:"votingDelay"`
	DistributionGap   int64     `cbor:"distributionGap" yaml:"distributionGap" json:"distributionGap"`
}

// DefaultVotingDelay is the time between proposal creation and the start of voting.
var DefaultVotingDelay = Days(1)

// DefaultDistributionGap is the minimum time between monthly distributions.
// A configured gap may lengthen it but never shorten it.
var DefaultDistributionGap = Days(30)

func contains(list []Address, addr Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

// IsGovernance reports whether caller may invoke governance restricted ledger calls.
func (p Params) IsGovernance(caller Address) bool {
	return caller == ModuleGovernance || contains(p.Governance, caller)
}

// IsFounder reports whether addr is a designated founder.
func (p Params) IsFounder(addr Address) bool {
	return contains(p.Founders, addr)
}

// IsVerifier reports whether addr belongs to the oracle verifier set.
func (p Params) IsVerifier(addr Address) bool {
	return contains(p.Verifiers, addr)
}

// Quorum returns the number of verifier approvals needed to register a submission.
func (p Params) Quorum() int {
	if p.VerifierQuorum == 0 {
		return 1
	}
	return int(p.VerifierQuorum)
}

// VotingDelayOrDefault returns the configured voting delay, or the default when unset.
func (p Params) VotingDelayOrDefault() int64 {
	if p.VotingDelay <= 0 {
		return DefaultVotingDelay
	}
	return p.VotingDelay
}

// DistributionGapOrDefault returns the configured distribution gap, or the default when
// unset or shorter.
func (p Params) DistributionGapOrDefault() int64 {
	if p.DistributionGap < DefaultDistributionGap {
		return DefaultDistributionGap
	}
	return p.DistributionGap
}
