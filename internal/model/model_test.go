package model_test

import (
	"contribution-ledger/internal/model"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		score uint32
		tier  model.Tier
	}{
		{100, model.TierPlatinum},
		{90, model.TierPlatinum},
		{89, model.TierGold},
		{80, model.TierGold},
		{79, model.TierSilver},
		{70, model.TierSilver},
		{69, model.TierBronze},
		{60, model.TierBronze},
		{59, model.TierRecognized},
		{50, model.TierRecognized},
		{49, model.TierNone},
		{0, model.TierNone},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.tier, model.TierFor(tc.score), "score %d", tc.score)
	}
}

func TestTierNamesAndMultipliers(t *testing.T) {
	assert.Equal(t, "platinum", model.TierPlatinum.String())
	assert.Equal(t, "none", model.TierNone.String())
	assert.Equal(t, "unknown", model.Tier(42).String())

	assert.EqualValues(t, 5, model.TierNone.Multiplier())
	assert.EqualValues(t, 10, model.TierRecognized.Multiplier())
	assert.EqualValues(t, 10, model.TierBronze.Multiplier())
	assert.EqualValues(t, 20, model.TierSilver.Multiplier())
	assert.EqualValues(t, 30, model.TierGold.Multiplier())
	assert.EqualValues(t, 40, model.TierPlatinum.Multiplier())
}

func TestComposite(t *testing.T) {
	scores := model.CategoryScores{CodeQuality: 90, Impact: 80, Documentation: 70, Innovation: 60, Integration: 50}
	assert.EqualValues(t, 74, scores.Composite())
	assert.True(t, scores.Valid())

	// 0.5 rounds up
	half := model.CategoryScores{Impact: 2}
	assert.EqualValues(t, 1, half.Composite())

	full := model.CategoryScores{CodeQuality: 100, Impact: 100, Documentation: 100, Innovation: 100, Integration: 100}
	assert.EqualValues(t, 100, full.Composite())

	assert.False(t, model.CategoryScores{Impact: 101}.Valid())
}

func TestValidAddress(t *testing.T) {
	valid := "02" + strings.Repeat("ab", 32)
	assert.True(t, model.ValidAddress(valid))
	assert.True(t, model.ValidAddress("03"+strings.Repeat("0", 64)))

	assert.False(t, model.ValidAddress(""))
	assert.False(t, model.ValidAddress("04"+strings.Repeat("ab", 32)))
	assert.False(t, model.ValidAddress("02"+strings.Repeat("AB", 32)))
	assert.False(t, model.ValidAddress(valid[:65]))
	assert.False(t, model.ValidAddress(model.ModuleGovernance))
}

func TestPeriodOf(t *testing.T) {
	ts := time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC).Unix()
	assert.Equal(t, "2024-01", model.PeriodOf(ts))
	assert.Equal(t, "2024-02", model.PeriodOf(ts+1))
}

func TestMath(t *testing.T) {
	_, ok := model.AddAmounts(math.MaxUint64, 1)
	assert.False(t, ok)
	assert.EqualValues(t, uint64(math.MaxUint64), model.SaturatingAdd(math.MaxUint64, 5))

	assert.EqualValues(t, 15, model.MulDiv(30, 50, 100))
	assert.EqualValues(t, uint64(math.MaxUint64)/2, model.MulDiv(math.MaxUint64, 5, 10))
	assert.EqualValues(t, uint64(math.MaxUint64), model.MulDiv(math.MaxUint64, 10, 1))

	assert.True(t, model.ProductAtLeast(math.MaxUint64, 100, 40, math.MaxUint64))
	assert.False(t, model.ProductAtLeast(1, 1, 2, 1))
}

func TestProposalTally(t *testing.T) {
	p := model.Proposal{
		QuorumPct:      20,
		ThresholdPct:   51,
		VotingStartsAt: 100,
		Deadline:       200,
		SupplySnapshot: 1000,
		For:            120,
		Against:        80,
	}
	assert.Equal(t, model.StatusPending, p.StatusAt(99))
	assert.Equal(t, model.StatusActive, p.StatusAt(100))
	assert.Equal(t, model.StatusActive, p.StatusAt(199))

	// 200 of 1000 meets the 20% quorum, 120/200 = 60% meets 51%
	assert.True(t, p.QuorumReached())
	assert.True(t, p.ThresholdReached())
	assert.Equal(t, model.StatusPassed, p.StatusAt(200))

	p.Against = 79
	assert.False(t, p.QuorumReached())
	assert.Equal(t, model.StatusFailed, p.StatusAt(200))

	abstainOnly := model.Proposal{QuorumPct: 20, ThresholdPct: 51, SupplySnapshot: 10, Abstain: 10}
	assert.True(t, abstainOnly.QuorumReached())
	assert.False(t, abstainOnly.ThresholdReached())

	p.Status = model.StatusCancelled
	assert.Equal(t, model.StatusCancelled, p.StatusAt(150))
}

func TestProposalRules(t *testing.T) {
	r, ok := model.ProposalCritical.Rules()
	assert.True(t, ok)
	assert.True(t, r.FounderCoApproval)
	assert.Equal(t, model.Days(14), r.Window)

	_, ok = model.ProposalType("emergency").Rules()
	assert.False(t, ok)
}

func TestParamsDefaults(t *testing.T) {
	p := model.Params{Governance: []model.Address{"g"}}
	assert.Equal(t, model.DefaultVotingDelay, p.VotingDelayOrDefault())
	assert.Equal(t, model.DefaultDistributionGap, p.DistributionGapOrDefault())

	p.DistributionGap = 60
	assert.Equal(t, model.DefaultDistributionGap, p.DistributionGapOrDefault())
	p.DistributionGap = model.Days(45)
	assert.Equal(t, model.Days(45), p.DistributionGapOrDefault())
	assert.Equal(t, 1, p.Quorum())
	assert.True(t, p.IsGovernance("g"))
	assert.True(t, p.IsGovernance(model.ModuleGovernance))
	assert.False(t, p.IsGovernance(model.ModuleRewards))
}
