package governance_test

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(i int) model.Address {
	return fmt.Sprintf("03%064x", i)
}

var (
	alice    = addr(1)
	bob      = addr(2)
	carol    = addr(3)
	dave     = addr(4)
	founder1 = addr(50)
	founder2 = addr(51)
	gov      = addr(60)
	verifier = addr(70)
)

const start int64 = 1_700_000_000

var (
	votingOpens  = start + model.DefaultVotingDelay
	tacticalEnds = votingOpens + model.Days(7)
	criticalEnds = votingOpens + model.Days(14)
)

func newStore(t *testing.T, treasury model.Amount) *state.MemoryStore {
	store := state.NewMemoryStore()
	err := store.Update(func(tx state.Tx) error {
		if err := params.Store(tx, model.Params{
			Governance: []model.Address{gov},
			Founders:   []model.Address{founder1, founder2},
			Verifiers:  []model.Address{verifier},
		}); err != nil {
			return err
		}
		return ledger.New(tx, model.Call{TxRef: "genesis", Now: start}, nil).
			Genesis(treasury, map[model.Address]model.Amount{alice: 400, bob: 300, carol: 300})
	})
	require.NoError(t, err)
	return store
}

func run(store state.Store, caller model.Address, now int64, fn func(r *governance.Registry) error) ([]events.Event, error) {
	txRef := fmt.Sprintf("%s-%d", caller, now)
	buf := events.NewBuffer(txRef, now)
	err := store.Update(func(tx state.Tx) error {
		return fn(governance.New(tx, model.Call{Caller: caller, TxRef: txRef, Now: now}, buf))
	})
	return buf.Events(), err
}

func view(t *testing.T, store state.Store, fn func(r *governance.Registry)) {
	require.NoError(t, store.View(func(tx state.Tx) error {
		fn(governance.New(tx, model.Call{}, nil))
		return nil
	}))
}

func register(t *testing.T, store state.Store, who model.Address, score uint32) {
	_, err := run(store, model.ModuleOracle, start, func(r *governance.Registry) error {
		return r.RegisterOrUpdateContributor(who, score, "commit-"+who[60:])
	})
	require.NoError(t, err)
}

func propose(t *testing.T, store state.Store, proposer model.Address, typ model.ProposalType, action model.ProposalAction) uint64 {
	var id uint64
	_, err := run(store, proposer, start, func(r *governance.Registry) error {
		p, err := r.CreateProposal("raise the pool", typ, action)
		id = p.ID
		return err
	})
	require.NoError(t, err)
	return id
}

func vote(store state.Store, voter model.Address, id uint64, support model.VoteType) error {
	_, err := run(store, voter, votingOpens, func(r *governance.Registry) error {
		return r.Vote(id, support)
	})
	return err
}

func execute(store state.Store, id uint64, now int64) error {
	_, err := run(store, dave, now, func(r *governance.Registry) error {
		return r.ExecuteProposal(id)
	})
	return err
}

func TestRegisterOrUpdateContributor(t *testing.T) {
	store := newStore(t, 0)

	_, err := run(store, alice, start, func(r *governance.Registry) error {
		return r.RegisterOrUpdateContributor(alice, 85, "c1")
	})
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	evs, err := run(store, model.ModuleOracle, start, func(r *governance.Registry) error {
		return r.RegisterOrUpdateContributor(dave, 85, "c1")
	})
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeContributorRegistered, evs[0].Type)
	assert.Equal(t, events.TypeTierChanged, evs[1].Type)
	assert.Equal(t, "gold", evs[1].Attributes["to"])

	evs, err = run(store, model.ModuleOracle, start+10, func(r *governance.Registry) error {
		return r.RegisterOrUpdateContributor(dave, 89, "c2")
	})
	require.NoError(t, err)
	assert.Len(t, evs, 1)

	_, err = run(store, model.ModuleOracle, start, func(r *governance.Registry) error {
		return r.RegisterOrUpdateContributor(dave, 101, "c3")
	})
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	view(t, store, func(r *governance.Registry) {
		c, err := r.Contributor(dave)
		require.NoError(t, err)
		assert.Equal(t, model.TierGold, c.Tier)
		assert.Equal(t, uint32(89), c.Score)
		assert.Equal(t, uint64(174), c.Points)
		assert.Equal(t, start, c.JoinedAt)
		assert.Equal(t, uint32(2), c.Registrations)
		assert.Contains(t, c.Trail, "c2")

		exists, err := r.Ledger().Exists(dave)
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = r.Contributor(carol)
		assert.ErrorIs(t, err, model.ErrContributorNotFound)
	})
}

func TestVotingPower(t *testing.T) {
	store := newStore(t, 0)
	register(t, store, alice, 90)
	register(t, store, bob, 75)

	view(t, store, func(r *governance.Registry) {
		for who, want := range map[model.Address]model.Amount{alice: 1600, bob: 600, carol: 150, dave: 0} {
			got, err := r.VotingPowerOf(who)
			require.NoError(t, err)
			assert.Equal(t, want, got, who)
		}
	})
}

// A tactical proposal over a supply of 1000 needs 200 votes and 51% approval.
func TestTacticalQuorumAndThreshold(t *testing.T) {
	store := newStore(t, 0)

	// holders vote at half weight: alice 200, bob 150, carol 150
	lowTurnout := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	require.NoError(t, vote(store, bob, lowTurnout, model.VoteFor))
	assert.ErrorIs(t, execute(store, lowTurnout, tacticalEnds), model.ErrQuorumNotMet)

	rejected := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	require.NoError(t, vote(store, alice, rejected, model.VoteAgainst))
	require.NoError(t, vote(store, bob, rejected, model.VoteFor))
	assert.ErrorIs(t, execute(store, rejected, tacticalEnds), model.ErrThresholdNotMet)

	onlyAbstain := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	require.NoError(t, vote(store, alice, onlyAbstain, model.VoteAbstain))
	assert.ErrorIs(t, execute(store, onlyAbstain, tacticalEnds), model.ErrThresholdNotMet)

	passed := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	require.NoError(t, vote(store, alice, passed, model.VoteFor))
	require.NoError(t, execute(store, passed, tacticalEnds))
	assert.ErrorIs(t, execute(store, passed, tacticalEnds+1), model.ErrAlreadyExecuted)

	view(t, store, func(r *governance.Registry) {
		p, err := r.Proposal(passed)
		require.NoError(t, err)
		assert.Equal(t, model.StatusExecuted, p.Status)
		assert.Equal(t, model.Amount(1000), p.SupplySnapshot)

		p, err = r.Proposal(rejected)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, p.StatusAt(tacticalEnds))
		assert.Equal(t, model.StatusActive, p.StatusAt(votingOpens))
		assert.Equal(t, model.StatusPending, p.StatusAt(start))
	})
}

func TestDoubleVoteLeavesTalliesUnchanged(t *testing.T) {
	store := newStore(t, 0)
	id := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})

	require.NoError(t, vote(store, bob, id, model.VoteFor))
	assert.ErrorIs(t, vote(store, bob, id, model.VoteAgainst), model.ErrDoubleVote)

	view(t, store, func(r *governance.Registry) {
		p, err := r.Proposal(id)
		require.NoError(t, err)
		assert.Equal(t, model.Amount(150), p.For)
		assert.Zero(t, p.Against)

		v, found, err := r.VoteOf(id, bob)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, model.VoteFor, v.Support)
	})
}

func TestVotingWindow(t *testing.T) {
	store := newStore(t, 0)
	id := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})

	_, err := run(store, bob, votingOpens-1, func(r *governance.Registry) error {
		return r.Vote(id, model.VoteFor)
	})
	assert.ErrorIs(t, err, model.ErrVotingNotStarted)

	_, err = run(store, bob, tacticalEnds, func(r *governance.Registry) error {
		return r.Vote(id, model.VoteFor)
	})
	assert.ErrorIs(t, err, model.ErrVotingClosed)

	assert.ErrorIs(t, execute(store, id, tacticalEnds-1), model.ErrVotingActive)
	assert.ErrorIs(t, execute(store, 99, tacticalEnds), model.ErrProposalNotFound)
	assert.ErrorIs(t, vote(store, bob, id, "maybe"), model.ErrInvalidProposal)
}

func TestVotingPowerIsSnapshotted(t *testing.T) {
	store := newStore(t, 0)
	id := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})

	_, err := run(store, bob, start+1, func(r *governance.Registry) error {
		return r.Ledger().Transfer(bob, dave, 300)
	})
	require.NoError(t, err)
	register(t, store, carol, 95)

	assert.ErrorIs(t, vote(store, dave, id, model.VoteFor), model.ErrNoVotingPower)
	require.NoError(t, vote(store, bob, id, model.VoteFor))
	require.NoError(t, vote(store, carol, id, model.VoteFor))

	view(t, store, func(r *governance.Registry) {
		p, err := r.Proposal(id)
		require.NoError(t, err)
		assert.Equal(t, model.Amount(300), p.For)
	})
}

func TestCriticalProposalNeedsFounders(t *testing.T) {
	store := newStore(t, 0)
	register(t, store, alice, 90)
	id := propose(t, store, alice, model.ProposalCritical, model.ProposalAction{})
	require.NoError(t, vote(store, alice, id, model.VoteFor))

	approve := func(who model.Address) error {
		_, err := run(store, who, start+5, func(r *governance.Registry) error {
			return r.ApproveCritical(id)
		})
		return err
	}

	assert.ErrorIs(t, approve(alice), model.ErrUnauthorized)
	require.NoError(t, approve(founder1))
	assert.ErrorIs(t, approve(founder1), model.ErrDoubleVote)
	assert.ErrorIs(t, execute(store, id, criticalEnds), model.ErrFounderApprovalRequired)

	require.NoError(t, approve(founder2))
	require.NoError(t, execute(store, id, criticalEnds))

	tactical := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	_, err := run(store, founder1, start, func(r *governance.Registry) error {
		return r.ApproveCritical(tactical)
	})
	assert.ErrorIs(t, err, model.ErrInvalidProposal)
}

func TestCancelProposal(t *testing.T) {
	store := newStore(t, 0)
	id := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})

	cancel := func(who model.Address, now int64, id uint64) error {
		_, err := run(store, who, now, func(r *governance.Registry) error {
			return r.CancelProposal(id)
		})
		return err
	}

	assert.ErrorIs(t, cancel(bob, start+1, id), model.ErrUnauthorized)
	assert.ErrorIs(t, cancel(alice, votingOpens, id), model.ErrVotingActive)
	require.NoError(t, cancel(founder1, start+1, id))
	assert.ErrorIs(t, cancel(alice, start+1, id), model.ErrProposalCancelled)

	assert.ErrorIs(t, vote(store, bob, id, model.VoteFor), model.ErrVotingClosed)
	assert.ErrorIs(t, execute(store, id, tacticalEnds), model.ErrProposalCancelled)

	own := propose(t, store, alice, model.ProposalTactical, model.ProposalAction{})
	require.NoError(t, cancel(alice, start+1, own))
}

func TestProposalActions(t *testing.T) {
	store := newStore(t, 1000)
	register(t, store, alice, 90)

	grant := propose(t, store, alice, model.ProposalTactical,
		model.ProposalAction{Kind: model.ActionTreasuryGrant, Target: dave, Amount: 250})
	mint := propose(t, store, alice, model.ProposalTactical,
		model.ProposalAction{Kind: model.ActionMint, Target: carol, Amount: 40})
	require.NoError(t, vote(store, alice, grant, model.VoteFor))
	require.NoError(t, vote(store, alice, mint, model.VoteFor))
	require.NoError(t, execute(store, grant, tacticalEnds))
	require.NoError(t, execute(store, mint, tacticalEnds))

	view(t, store, func(r *governance.Registry) {
		balance, err := r.Ledger().BalanceOf(dave)
		require.NoError(t, err)
		assert.Equal(t, model.Amount(250), balance)

		supply, err := r.Ledger().Supply()
		require.NoError(t, err)
		assert.Equal(t, model.Supply{Total: 2040, Treasury: 750, Circulating: 1290}, supply)
		assert.NoError(t, r.Ledger().VerifyIntegrity())
	})
}

func TestCreateProposalValidation(t *testing.T) {
	store := newStore(t, 0)

	tests := []struct {
		name     string
		proposer model.Address
		desc     string
		typ      model.ProposalType
		action   model.ProposalAction
		want     error
	}{
		{"empty description", alice, "  ", model.ProposalTactical, model.ProposalAction{}, model.ErrInvalidProposal},
		{"unknown type", alice, "x", "urgent", model.ProposalAction{}, model.ErrInvalidProposal},
		{"grant without amount", alice, "x", model.ProposalTactical,
			model.ProposalAction{Kind: model.ActionTreasuryGrant, Target: bob}, model.ErrInvalidProposal},
		{"unknown action", alice, "x", model.ProposalTactical, model.ProposalAction{Kind: "airdrop"}, model.ErrInvalidProposal},
		{"no voting power", dave, "x", model.ProposalTactical, model.ProposalAction{}, model.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(store, tt.proposer, start, func(r *governance.Registry) error {
				_, err := r.CreateProposal(tt.desc, tt.typ, tt.action)
				return err
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	view(t, store, func(r *governance.Registry) {
		count, err := r.ProposalCount()
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestVerifyTiers(t *testing.T) {
	store := newStore(t, 0)
	register(t, store, alice, 72)
	register(t, store, bob, 64)

	view(t, store, func(r *governance.Registry) {
		assert.NoError(t, r.VerifyTiers())
	})

	_, err := run(store, model.ModuleOracle, start, func(r *governance.Registry) error {
		c, err := r.Contributor(bob)
		if err != nil {
			return err
		}
		c.Tier = model.TierPlatinum
		return r.SaveContributor(c)
	})
	require.NoError(t, err)

	view(t, store, func(r *governance.Registry) {
		assert.ErrorIs(t, r.VerifyTiers(), model.ErrTierMismatch)
	})
}
