package model

import "time"

// VerificationLevel of an oracle submission. Transitions only move forward.
type VerificationLevel uint8

const (
	LevelUnverified VerificationLevel = iota
	LevelVerified
	LevelRegistered
)

func (l VerificationLevel) String() string {
	switch l {
	case LevelUnverified:
		return "unverified"
	case LevelVerified:
		return "verified"
	case LevelRegistered:
		return "registered"
	}
	return "unknown"
}

// MaxCategoryScore is the upper bound of every category score and of the composite.
const MaxCategoryScore = 100

// CategoryScores are the per-category scores produced by the off-chain analyzer.
type CategoryScores struct {
	CodeQuality   uint32 `cbor:"codeQuality" json:"codeQuality"`
	Impact        uint32 `cbor:"impact" json:"impact"`
	Documentation uint32 `cbor:"documentation" json:"documentation"`
	Innovation    uint32 `cbor:"innovation" json:"innovation"`
	Integration   uint32 `cbor:"integration" json:"integration"`
}

// Category weights in percent; they add up to 100.
const (
	weightCodeQuality   = 30
	weightImpact        = 25
	weightDocumentation = 15
	weightInnovation    = 15
	weightIntegration   = 15
)

// Valid reports whether every category is within [0, MaxCategoryScore].
func (s CategoryScores) Valid() bool {
	for _, v := range []uint32{s.CodeQuality, s.Impact, s.Documentation, s.Innovation, s.Integration} {
		if v > MaxCategoryScore {
			return false
		}
	}
	return true
}

// Composite returns the weighted composite score, rounded half up.
func (s CategoryScores) Composite() uint32 {
	sum := s.CodeQuality*weightCodeQuality +
		s.Impact*weightImpact +
		s.Documentation*weightDocumentation +
		s.Innovation*weightInnovation +
		s.Integration*weightIntegration
	return (sum + 50) / 100
}

// Submission is an oracle score submission for one contributor and evaluation period.
type Submission struct {
	Submitter    Address           `cbor:"submitter" json:"submitter"`
	Contributor  Address           `cbor:"contributor" json:"contributor"`
	Period       string            `cbor:"period" json:"period"`
	Scores       CategoryScores    `cbor:"scores" json:"scores"`
	Composite    uint32            `cbor:"composite" json:"composite"`
	CommitRef    string            `cbor:"commitRef" json:"commitRef"`
	DataHash     string            `cbor:"dataHash" json:"dataHash"`
	Level        VerificationLevel `cbor:"level" json:"level"`
	Verifiers    []Address         `cbor:"verifiers" json:"verifiers"`
	SubmittedAt  int64             `cbor:"submittedAt" json:"submittedAt"`
	RegisteredAt int64             `cbor:"registeredAt" json:"registeredAt"`
}

// VerifierCount is the number of verifiers that approved the submission.
func (s Submission) VerifierCount() int {
	return len(s.Verifiers)
}

// ApprovedBy reports whether verifier already approved the submission.
func (s Submission) ApprovedBy(verifier Address) bool {
	for _, v := range s.Verifiers {
		if v == verifier {
			return true
		}
	}
	return false
}

// PeriodOf returns the evaluation period (calendar month, UTC) of a unix timestamp.
func PeriodOf(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01")
}
