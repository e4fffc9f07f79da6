package engine

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/oracle"
	"contribution-ledger/internal/rewards"
	"contribution-ledger/internal/state"
)

// Operation names recorded in the journal.
const (
	OpRegisterAccount   = "register_account"
	OpTransfer          = "transfer"
	OpApprove           = "approve"
	OpIncreaseAllowance = "increase_allowance"
	OpDecreaseAllowance = "decrease_allowance"
	OpTransferFrom      = "transfer_from"
	OpMint              = "mint"
	OpBurn              = "burn"
	OpDistributeReward  = "distribute_reward"
	OpTreasuryWithdraw  = "treasury_withdraw"
	OpTreasuryDeposit   = "treasury_deposit"

	OpCreateProposal  = "create_proposal"
	OpVote            = "vote"
	OpApproveCritical = "approve_critical"
	OpCancelProposal  = "cancel_proposal"
	OpExecuteProposal = "execute_proposal"

	OpSubmitScore       = "submit_score"
	OpVerifyAndRegister = "verify_and_register"

	OpDistributeMonthlyRewards = "distribute_monthly_rewards"
)

func (e *Engine) withLedger(o Origin, op string, fn func(l *ledger.Ledger) error) error {
	return e.apply(o, op, func(tx state.Tx, call model.Call, rec events.Recorder) error {
		return fn(ledger.New(tx, call, rec))
	})
}

func (e *Engine) withRegistry(o Origin, op string, fn func(r *governance.Registry) error) error {
	return e.apply(o, op, func(tx state.Tx, call model.Call, rec events.Recorder) error {
		return fn(governance.New(tx, call, rec))
	})
}

func (e *Engine) withBridge(o Origin, op string, fn func(b *oracle.Bridge) error) error {
	return e.apply(o, op, func(tx state.Tx, call model.Call, rec events.Recorder) error {
		return fn(oracle.New(tx, call, rec))
	})
}

// RegisterAccount creates an empty account for the caller.
func (e *Engine) RegisterAccount(o Origin) error {
	return e.withLedger(o, OpRegisterAccount, func(l *ledger.Ledger) error {
		return l.Register(o.Caller)
	})
}

func (e *Engine) Transfer(o Origin, recipient model.Address, amount model.Amount) error {
	return e.withLedger(o, OpTransfer, func(l *ledger.Ledger) error {
		return l.Transfer(o.Caller, recipient, amount)
	})
}

func (e *Engine) Approve(o Origin, spender model.Address, amount model.Amount) error {
	return e.withLedger(o, OpApprove, func(l *ledger.Ledger) error {
		return l.Approve(o.Caller, spender, amount)
	})
}

func (e *Engine) IncreaseAllowance(o Origin, spender model.Address, amount model.Amount) error {
	return e.withLedger(o, OpIncreaseAllowance, func(l *ledger.Ledger) error {
		return l.IncreaseAllowance(o.Caller, spender, amount)
	})
}

func (e *Engine) DecreaseAllowance(o Origin, spender model.Address, amount model.Amount) error {
	return e.withLedger(o, OpDecreaseAllowance, func(l *ledger.Ledger) error {
		return l.DecreaseAllowance(o.Caller, spender, amount)
	})
}

// TransferFrom moves funds of owner using the allowance granted to the caller.
func (e *Engine) TransferFrom(o Origin, owner, recipient model.Address, amount model.Amount) error {
	return e.withLedger(o, OpTransferFrom, func(l *ledger.Ledger) error {
		return l.TransferFrom(o.Caller, owner, recipient, amount)
	})
}

func (e *Engine) Mint(o Origin, account model.Address, amount model.Amount) error {
	return e.withLedger(o, OpMint, func(l *ledger.Ledger) error {
		return l.Mint(account, amount)
	})
}

func (e *Engine) Burn(o Origin, account model.Address, amount model.Amount) error {
	return e.withLedger(o, OpBurn, func(l *ledger.Ledger) error {
		return l.Burn(account, amount)
	})
}

func (e *Engine) DistributeReward(o Origin, recipient model.Address, amount model.Amount) error {
	return e.withLedger(o, OpDistributeReward, func(l *ledger.Ledger) error {
		return l.DistributeReward(recipient, amount)
	})
}

func (e *Engine) TreasuryWithdraw(o Origin, recipient model.Address, amount model.Amount) error {
	return e.withLedger(o, OpTreasuryWithdraw, func(l *ledger.Ledger) error {
		return l.TreasuryWithdraw(recipient, amount)
	})
}

// TreasuryDeposit moves funds of the caller into the treasury.
func (e *Engine) TreasuryDeposit(o Origin, amount model.Amount) error {
	return e.withLedger(o, OpTreasuryDeposit, func(l *ledger.Ledger) error {
		return l.TreasuryDeposit(o.Caller, amount)
	})
}

func (e *Engine) CreateProposal(o Origin, description string, typ model.ProposalType, action model.ProposalAction) (model.Proposal, error) {
	var proposal model.Proposal
	err := e.withRegistry(o, OpCreateProposal, func(r *governance.Registry) error {
		var err error
		proposal, err = r.CreateProposal(description, typ, action)
		return err
	})
	return proposal, err
}

func (e *Engine) Vote(o Origin, id uint64, support model.VoteType) error {
	return e.withRegistry(o, OpVote, func(r *governance.Registry) error {
		return r.Vote(id, support)
	})
}

func (e *Engine) ApproveCritical(o Origin, id uint64) error {
	return e.withRegistry(o, OpApproveCritical, func(r *governance.Registry) error {
		return r.ApproveCritical(id)
	})
}

func (e *Engine) CancelProposal(o Origin, id uint64) error {
	return e.withRegistry(o, OpCancelProposal, func(r *governance.Registry) error {
		return r.CancelProposal(id)
	})
}

func (e *Engine) ExecuteProposal(o Origin, id uint64) error {
	return e.withRegistry(o, OpExecuteProposal, func(r *governance.Registry) error {
		return r.ExecuteProposal(id)
	})
}

func (e *Engine) SubmitScore(o Origin, contributor model.Address, scores model.CategoryScores, commitRef string) (model.Submission, error) {
	var s model.Submission
	err := e.withBridge(o, OpSubmitScore, func(b *oracle.Bridge) error {
		var err error
		s, err = b.SubmitScore(contributor, scores, commitRef)
		return err
	})
	return s, err
}

func (e *Engine) VerifyAndRegister(o Origin, contributor model.Address) (model.Submission, error) {
	var s model.Submission
	err := e.withBridge(o, OpVerifyAndRegister, func(b *oracle.Bridge) error {
		var err error
		s, err = b.VerifyAndRegister(contributor)
		return err
	})
	return s, err
}

func (e *Engine) DistributeMonthlyRewards(o Origin) ([]rewards.Winner, error) {
	var winners []rewards.Winner
	err := e.apply(o, OpDistributeMonthlyRewards, func(tx state.Tx, call model.Call, rec events.Recorder) error {
		var err error
		winners, err = rewards.New(tx, call, rec).DistributeMonthlyRewards()
		return err
	})
	return winners, err
}
