package governance

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/state"
	"fmt"
	"strconv"
	"strings"
)

const (
	proposalsTable = "proposals"
	counterTable   = "proposal-counter"
	votesTable     = "votes"
	snapshotsTable = "snapshots"
)

func proposalKey(id uint64) string {
	return state.Address(proposalsTable, strconv.FormatUint(id, 10))
}

func voteKey(id uint64, voter model.Address) string {
	return state.Address(votesTable, strconv.FormatUint(id, 10), voter)
}

func snapshotKey(id uint64, addr model.Address) string {
	return state.Address(snapshotsTable, strconv.FormatUint(id, 10), addr)
}

type counter struct {
	Last uint64 `cbor:"last"`
}

// Proposal returns the stored proposal with the given id.
func (r *Registry) Proposal(id uint64) (model.Proposal, error) {
	var p model.Proposal
	found, err := state.Load(r.tx, proposalKey(id), &p)
	if err != nil {
		return model.Proposal{}, err
	}
	if !found {
		return model.Proposal{}, fmt.Errorf("proposal %d: %w", id, model.ErrProposalNotFound)
	}
	return p, nil
}

func (r *Registry) saveProposal(p model.Proposal) error {
	return state.Save(r.tx, proposalKey(p.ID), p)
}

// ProposalCount returns the id of the last created proposal.
func (r *Registry) ProposalCount() (uint64, error) {
	var c counter
	if _, err := state.Load(r.tx, state.Address(counterTable), &c); err != nil {
		return 0, err
	}
	return c.Last, nil
}

// VoteOf returns the vote of voter on proposal id, if any.
func (r *Registry) VoteOf(id uint64, voter model.Address) (model.Vote, bool, error) {
	var v model.Vote
	found, err := state.Load(r.tx, voteKey(id, voter), &v)
	if err != nil {
		return model.Vote{}, false, err
	}
	return v, found, nil
}

// SnapshotPower returns the voting power of addr frozen when proposal id was created.
func (r *Registry) SnapshotPower(id uint64, addr model.Address) (model.Amount, error) {
	var power model.Amount
	if _, err := state.Load(r.tx, snapshotKey(id, addr), &power); err != nil {
		return 0, err
	}
	return power, nil
}

func validAction(a model.ProposalAction) bool {
	switch a.Kind {
	case model.ActionNone:
		return a.Target == "" && a.Amount == 0
	case model.ActionTreasuryGrant, model.ActionMint:
		return model.ValidAddress(a.Target) && a.Amount > 0
	}
	return false
}

// CreateProposal opens a proposal by the caller. The voting rules of the type and the voting
// power of every account are frozen at creation.
func (r *Registry) CreateProposal(description string, typ model.ProposalType, action model.ProposalAction) (model.Proposal, error) {
	proposer := r.call.Caller
	if !model.ValidAddress(proposer) {
		return model.Proposal{}, fmt.Errorf("create proposal: %q: %w", proposer, model.ErrInvalidAddress)
	}
	if strings.TrimSpace(description) == "" {
		return model.Proposal{}, fmt.Errorf("create proposal: empty description: %w", model.ErrInvalidProposal)
	}
	rules, ok := typ.Rules()
	if !ok {
		return model.Proposal{}, fmt.Errorf("create proposal: type %q: %w", typ, model.ErrInvalidProposal)
	}
	if !validAction(action) {
		return model.Proposal{}, fmt.Errorf("create proposal: action %q: %w", action.Kind, model.ErrInvalidProposal)
	}

	power, err := r.VotingPowerOf(proposer)
	if err != nil {
		return model.Proposal{}, err
	}
	if power == 0 {
		return model.Proposal{}, fmt.Errorf("create proposal: proposer without voting power: %w", model.ErrUnauthorized)
	}

	p, err := r.params()
	if err != nil {
		return model.Proposal{}, err
	}
	supply, err := r.ledger.Supply()
	if err != nil {
		return model.Proposal{}, err
	}

	var c counter
	if _, err := state.Load(r.tx, state.Address(counterTable), &c); err != nil {
		return model.Proposal{}, err
	}
	c.Last++
	if err := state.Save(r.tx, state.Address(counterTable), c); err != nil {
		return model.Proposal{}, err
	}

	start := r.call.Now + p.VotingDelayOrDefault()
	proposal := model.Proposal{
		ID:              c.Last,
		Proposer:        proposer,
		Description:     description,
		Type:            typ,
		Action:          action,
		QuorumPct:       rules.QuorumPct,
		ThresholdPct:    rules.ThresholdPct,
		FounderApproval: rules.FounderCoApproval,
		CreatedAt:       r.call.Now,
		VotingStartsAt:  start,
		Deadline:        start + rules.Window,
		SupplySnapshot:  supply.Total,
		Status:          model.StatusPending,
	}

	err = r.ledger.ForEachAccount(func(acc model.Account) error {
		power, err := r.powerOf(acc.Address, acc.Balance)
		if err != nil || power == 0 {
			return err
		}
		return state.Save(r.tx, snapshotKey(proposal.ID, acc.Address), power)
	})
	if err != nil {
		return model.Proposal{}, err
	}
	if err := r.saveProposal(proposal); err != nil {
		return model.Proposal{}, err
	}

	r.rec.Record(events.TypeProposalCreated, map[string]string{
		"id":       strconv.FormatUint(proposal.ID, 10),
		"proposer": proposer,
		"type":     string(typ),
		"deadline": strconv.FormatInt(proposal.Deadline, 10),
	})
	return proposal, nil
}

// Vote casts the caller's snapshot voting power on proposal id.
func (r *Registry) Vote(id uint64, support model.VoteType) error {
	voter := r.call.Caller
	if !support.Valid() {
		return fmt.Errorf("vote: support %q: %w", support, model.ErrInvalidProposal)
	}
	p, err := r.Proposal(id)
	if err != nil {
		return err
	}

	switch {
	case p.Status == model.StatusCancelled || p.Status == model.StatusExecuted:
		return fmt.Errorf("vote: proposal %d is %s: %w", id, p.Status, model.ErrVotingClosed)
	case r.call.Now >= p.Deadline:
		return fmt.Errorf("vote: proposal %d: %w", id, model.ErrVotingClosed)
	case r.call.Now < p.VotingStartsAt:
		return fmt.Errorf("vote: proposal %d: %w", id, model.ErrVotingNotStarted)
	}

	_, voted, err := r.VoteOf(id, voter)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("vote: %s on proposal %d: %w", voter, id, model.ErrDoubleVote)
	}
	power, err := r.SnapshotPower(id, voter)
	if err != nil {
		return err
	}
	if power == 0 {
		return fmt.Errorf("vote: %s on proposal %d: %w", voter, id, model.ErrNoVotingPower)
	}

	switch support {
	case model.VoteFor:
		p.For = model.SaturatingAdd(p.For, power)
	case model.VoteAgainst:
		p.Against = model.SaturatingAdd(p.Against, power)
	case model.VoteAbstain:
		p.Abstain = model.SaturatingAdd(p.Abstain, power)
	}

	vote := model.Vote{ProposalID: id, Voter: voter, Support: support, Power: power, CastAt: r.call.Now}
	if err := state.Save(r.tx, voteKey(id, voter), vote); err != nil {
		return err
	}
	if err := r.saveProposal(p); err != nil {
		return err
	}

	r.rec.Record(events.TypeVoteCast, map[string]string{
		"id":      strconv.FormatUint(id, 10),
		"voter":   voter,
		"support": string(support),
		"power":   strconv.FormatUint(power, 10),
	})
	return nil
}

func checkOpen(op string, p model.Proposal) error {
	switch p.Status {
	case model.StatusCancelled:
		return fmt.Errorf("%s: proposal %d: %w", op, p.ID, model.ErrProposalCancelled)
	case model.StatusExecuted:
		return fmt.Errorf("%s: proposal %d: %w", op, p.ID, model.ErrAlreadyExecuted)
	}
	return nil
}

// ApproveCritical records the co-approval of a founder on a critical proposal.
func (r *Registry) ApproveCritical(id uint64) error {
	founder := r.call.Caller
	p, err := r.params()
	if err != nil {
		return err
	}
	if !p.IsFounder(founder) {
		return fmt.Errorf("approve critical: caller %s: %w", founder, model.ErrUnauthorized)
	}

	proposal, err := r.Proposal(id)
	if err != nil {
		return err
	}
	if proposal.Type != model.ProposalCritical {
		return fmt.Errorf("approve critical: proposal %d is %s: %w", id, proposal.Type, model.ErrInvalidProposal)
	}
	if err := checkOpen("approve critical", proposal); err != nil {
		return err
	}
	if proposal.ApprovedByFounder(founder) {
		return fmt.Errorf("approve critical: %s on proposal %d: %w", founder, id, model.ErrDoubleVote)
	}

	proposal.FounderApprovals = append(proposal.FounderApprovals, founder)
	if err := r.saveProposal(proposal); err != nil {
		return err
	}
	r.rec.Record(events.TypeCriticalApproved, map[string]string{
		"id":      strconv.FormatUint(id, 10),
		"founder": founder,
	})
	return nil
}

// CancelProposal cancels a proposal before its voting starts. Only the proposer or a
// founder may cancel.
func (r *Registry) CancelProposal(id uint64) error {
	proposal, err := r.Proposal(id)
	if err != nil {
		return err
	}
	if err := checkOpen("cancel proposal", proposal); err != nil {
		return err
	}

	p, err := r.params()
	if err != nil {
		return err
	}
	if r.call.Caller != proposal.Proposer && !p.IsFounder(r.call.Caller) {
		return fmt.Errorf("cancel proposal: caller %s: %w", r.call.Caller, model.ErrUnauthorized)
	}
	if r.call.Now >= proposal.VotingStartsAt {
		return fmt.Errorf("cancel proposal: proposal %d: %w", id, model.ErrVotingActive)
	}

	proposal.Status = model.StatusCancelled
	if err := r.saveProposal(proposal); err != nil {
		return err
	}
	r.rec.Record(events.TypeProposalCancelled, map[string]string{
		"id":     strconv.FormatUint(id, 10),
		"caller": r.call.Caller,
	})
	return nil
}

// ExecuteProposal applies a passed proposal once its voting window elapsed. Anyone may call it.
func (r *Registry) ExecuteProposal(id uint64) error {
	proposal, err := r.Proposal(id)
	if err != nil {
		return err
	}
	if err := checkOpen("execute proposal", proposal); err != nil {
		return err
	}
	if r.call.Now < proposal.Deadline {
		return fmt.Errorf("execute proposal: proposal %d: %w", id, model.ErrVotingActive)
	}
	if !proposal.QuorumReached() {
		return fmt.Errorf("execute proposal: %d of %d%% of %d: %w",
			proposal.TotalVotes(), proposal.QuorumPct, proposal.SupplySnapshot, model.ErrQuorumNotMet)
	}
	if !proposal.ThresholdReached() {
		return fmt.Errorf("execute proposal: %d for, %d against: %w", proposal.For, proposal.Against, model.ErrThresholdNotMet)
	}

	if proposal.FounderApproval {
		p, err := r.params()
		if err != nil {
			return err
		}
		if len(p.Founders) == 0 {
			return fmt.Errorf("execute proposal: no founders to approve: %w", model.ErrFounderApprovalRequired)
		}
		for _, founder := range p.Founders {
			if !proposal.ApprovedByFounder(founder) {
				return fmt.Errorf("execute proposal: founder %s: %w", founder, model.ErrFounderApprovalRequired)
			}
		}
	}

	module := r.ledger.As(model.ModuleGovernance)
	switch proposal.Action.Kind {
	case model.ActionTreasuryGrant:
		err = module.TreasuryWithdraw(proposal.Action.Target, proposal.Action.Amount)
	case model.ActionMint:
		err = module.Mint(proposal.Action.Target, proposal.Action.Amount)
	}
	if err != nil {
		return fmt.Errorf("execute proposal %d: %w", id, err)
	}

	proposal.Status = model.StatusExecuted
	proposal.ExecutedAt = r.call.Now
	if err := r.saveProposal(proposal); err != nil {
		return err
	}
	r.rec.Record(events.TypeProposalExecuted, map[string]string{
		"id":     strconv.FormatUint(id, 10),
		"for":    strconv.FormatUint(proposal.For, 10),
		"action": string(proposal.Action.Kind),
	})
	return nil
}
