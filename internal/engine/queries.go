package engine

import (
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/journal"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/oracle"
	"contribution-ledger/internal/rewards"
	"contribution-ledger/internal/state"

	"go.uber.org/multierr"
)

// ProposalView is a proposal with its status derived at query time.
type ProposalView struct {
	model.Proposal
	Current model.ProposalStatus
}

func (e *Engine) Account(addr model.Address) (model.Account, error) {
	var acc model.Account
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		acc, err = ledger.New(tx, call, nil).Account(addr)
		return err
	})
	return acc, err
}

func (e *Engine) BalanceOf(addr model.Address) (model.Amount, error) {
	acc, err := e.Account(addr)
	return acc.Balance, err
}

func (e *Engine) Allowance(owner, spender model.Address) (model.Amount, error) {
	var amount model.Amount
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		amount, err = ledger.New(tx, call, nil).Allowance(owner, spender)
		return err
	})
	return amount, err
}

func (e *Engine) Supply() (model.Supply, error) {
	var s model.Supply
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		s, err = ledger.New(tx, call, nil).Supply()
		return err
	})
	return s, err
}

// VerifyIntegrity recomputes the supply, checks every tier and walks the journal chain.
// All failures are reported together.
func (e *Engine) VerifyIntegrity() error {
	return e.view(func(tx state.Tx, call model.Call) error {
		return multierr.Combine(
			ledger.New(tx, call, nil).VerifyIntegrity(),
			governance.New(tx, call, nil).VerifyTiers(),
			journal.Verify(tx),
		)
	})
}

func (e *Engine) VotingPowerOf(addr model.Address) (model.Amount, error) {
	var power model.Amount
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		power, err = governance.New(tx, call, nil).VotingPowerOf(addr)
		return err
	})
	return power, err
}

func (e *Engine) Contributor(addr model.Address) (model.Contributor, error) {
	var c model.Contributor
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		c, err = governance.New(tx, call, nil).Contributor(addr)
		return err
	})
	return c, err
}

func (e *Engine) Contributors() ([]model.Contributor, error) {
	var out []model.Contributor
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		out, err = governance.New(tx, call, nil).Contributors()
		return err
	})
	return out, err
}

func (e *Engine) Proposal(id uint64) (ProposalView, error) {
	var v ProposalView
	err := e.view(func(tx state.Tx, call model.Call) error {
		p, err := governance.New(tx, call, nil).Proposal(id)
		if err != nil {
			return err
		}
		v = ProposalView{Proposal: p, Current: p.StatusAt(call.Now)}
		return nil
	})
	return v, err
}

func (e *Engine) VoteOf(id uint64, voter model.Address) (model.Vote, bool, error) {
	var (
		v     model.Vote
		found bool
	)
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		v, found, err = governance.New(tx, call, nil).VoteOf(id, voter)
		return err
	})
	return v, found, err
}

func (e *Engine) Submission(contributor model.Address, period string) (model.Submission, error) {
	var s model.Submission
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		s, err = oracle.New(tx, call, nil).Submission(contributor, period)
		return err
	})
	return s, err
}

func (e *Engine) LatestSubmission(contributor model.Address) (model.Submission, error) {
	var s model.Submission
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		s, err = oracle.New(tx, call, nil).LatestSubmission(contributor)
		return err
	})
	return s, err
}

func (e *Engine) RewardsPreview() ([]rewards.Winner, error) {
	var winners []rewards.Winner
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		winners, err = rewards.New(tx, call, nil).Preview()
		return err
	})
	return winners, err
}

func (e *Engine) RewardsStatus() (rewards.Status, error) {
	var s rewards.Status
	err := e.view(func(tx state.Tx, call model.Call) error {
		var err error
		s, err = rewards.New(tx, call, nil).Status()
		return err
	})
	return s, err
}
