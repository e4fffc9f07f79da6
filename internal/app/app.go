package app

import (
	"context"
	"contribution-ledger/internal/engine"
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/rewards"
	"contribution-ledger/internal/transaction"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// SchedulerCaller is the identity recorded for distributions triggered by the scheduler.
const SchedulerCaller model.Address = "scheduler"

var (
	ErrArchiveDisabled = errors.New("event archive not configured")
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingField    = errors.New("missing payload field")
)

// Archive is the read model of committed events.
type Archive interface {
	Events(ctx context.Context, eventType string, limit int64) ([]events.Event, error)
}

type App struct {
	logger  *zap.Logger
	engine  *engine.Engine
	archive Archive
}

// NewApp wires the application. archive may be nil when no event archive is configured.
func NewApp(logger *zap.Logger, eng *engine.Engine, archive Archive) *App {
	return &App{
		logger:  logger,
		engine:  eng,
		archive: archive,
	}
}

// Receipt describes the outcome of a committed transaction.
type Receipt struct {
	TxRef      string            `json:"txRef"`
	Action     string            `json:"action"`
	Caller     model.Address     `json:"caller"`
	Proposal   *model.Proposal   `json:"proposal,omitempty"`
	Submission *model.Submission `json:"submission,omitempty"`
	Winners    []rewards.Winner  `json:"winners,omitempty"`
}

// Submit authenticates a serialized signed transaction and applies its call.
func (a *App) Submit(ctx context.Context, raw []byte) (Receipt, error) {
	txn, err := transaction.Unmarshal(raw)
	if err != nil {
		return Receipt{}, err
	}
	verified, err := transaction.Verify(txn)
	if err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	a.logger.Info("applying transaction",
		zap.String("action", verified.Payload.Action),
		zap.String("signer", verified.Signer),
		zap.String("txRef", verified.TxRef))

	origin := engine.Origin{Caller: verified.Signer, TxRef: verified.TxRef}
	receipt, err := a.dispatch(origin, verified.Payload)
	if err != nil {
		a.logger.Info("transaction rejected: "+err.Error(), zap.String("txRef", verified.TxRef))
		return Receipt{}, err
	}
	return receipt, nil
}

func (a *App) dispatch(origin engine.Origin, p transaction.Payload) (Receipt, error) {
	receipt := Receipt{TxRef: origin.TxRef, Action: p.Action, Caller: origin.Caller}
	e := a.engine

	var err error
	switch p.Action {
	case engine.OpRegisterAccount:
		err = e.RegisterAccount(origin)
	case engine.OpTransfer:
		err = e.Transfer(origin, p.Recipient, p.Amount)
	case engine.OpApprove:
		err = e.Approve(origin, p.Spender, p.Amount)
	case engine.OpIncreaseAllowance:
		err = e.IncreaseAllowance(origin, p.Spender, p.Amount)
	case engine.OpDecreaseAllowance:
		err = e.DecreaseAllowance(origin, p.Spender, p.Amount)
	case engine.OpTransferFrom:
		err = e.TransferFrom(origin, p.Owner, p.Recipient, p.Amount)
	case engine.OpMint:
		err = e.Mint(origin, p.Account, p.Amount)
	case engine.OpBurn:
		err = e.Burn(origin, p.Account, p.Amount)
	case engine.OpDistributeReward:
		err = e.DistributeReward(origin, p.Recipient, p.Amount)
	case engine.OpTreasuryWithdraw:
		err = e.TreasuryWithdraw(origin, p.Recipient, p.Amount)
	case engine.OpTreasuryDeposit:
		err = e.TreasuryDeposit(origin, p.Amount)

	case engine.OpCreateProposal:
		action := model.ProposalAction{}
		if p.Proposal != nil {
			action = *p.Proposal
		}
		var proposal model.Proposal
		proposal, err = e.CreateProposal(origin, p.Description, p.Type, action)
		receipt.Proposal = &proposal
	case engine.OpVote:
		err = e.Vote(origin, p.ProposalID, p.Support)
	case engine.OpApproveCritical:
		err = e.ApproveCritical(origin, p.ProposalID)
	case engine.OpCancelProposal:
		err = e.CancelProposal(origin, p.ProposalID)
	case engine.OpExecuteProposal:
		err = e.ExecuteProposal(origin, p.ProposalID)

	case engine.OpSubmitScore:
		if p.Scores == nil {
			return Receipt{}, fmt.Errorf("scores: %w", ErrMissingField)
		}
		var s model.Submission
		s, err = e.SubmitScore(origin, p.Contributor, *p.Scores, p.CommitRef)
		receipt.Submission = &s
	case engine.OpVerifyAndRegister:
		var s model.Submission
		s, err = e.VerifyAndRegister(origin, p.Contributor)
		receipt.Submission = &s

	case engine.OpDistributeMonthlyRewards:
		receipt.Winners, err = e.DistributeMonthlyRewards(origin)

	default:
		return Receipt{}, fmt.Errorf("%q: %w", p.Action, ErrUnknownAction)
	}
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// RunDistribution tries the monthly distribution on behalf of the scheduler.
// It reports false without an error when the distribution is not due yet.
func (a *App) RunDistribution(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	winners, err := a.engine.DistributeMonthlyRewards(engine.Origin{Caller: SchedulerCaller})
	if errors.Is(err, model.ErrDistributionTooEarly) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	a.logger.Info("monthly rewards distributed", zap.Int("winners", len(winners)))
	return true, nil
}

// Schedule tries the monthly distribution on every tick and returns once ctx is done.
func (a *App) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.RunDistribution(ctx); err != nil {
				a.logger.Error("scheduled distribution failed: " + err.Error())
			}
		}
	}
}

func (a *App) Account(addr model.Address) (model.Account, error) {
	if !model.ValidAddress(addr) {
		return model.Account{}, model.ErrInvalidAddress
	}
	return a.engine.Account(addr)
}

func (a *App) Allowance(owner, spender model.Address) (model.Amount, error) {
	if !model.ValidAddress(owner) || !model.ValidAddress(spender) {
		return 0, model.ErrInvalidAddress
	}
	return a.engine.Allowance(owner, spender)
}

func (a *App) Supply() (model.Supply, error) {
	return a.engine.Supply()
}

func (a *App) VerifyIntegrity() error {
	return a.engine.VerifyIntegrity()
}

func (a *App) Contributor(addr model.Address) (model.Contributor, error) {
	return a.engine.Contributor(addr)
}

func (a *App) Contributors() ([]model.Contributor, error) {
	return a.engine.Contributors()
}

func (a *App) Proposal(id uint64) (engine.ProposalView, error) {
	return a.engine.Proposal(id)
}

func (a *App) RewardsStatus() (rewards.Status, error) {
	return a.engine.RewardsStatus()
}

func (a *App) RewardsPreview() ([]rewards.Winner, error) {
	return a.engine.RewardsPreview()
}

// Events returns archived events, newest first.
func (a *App) Events(ctx context.Context, eventType string, limit int64) ([]events.Event, error) {
	if a.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return a.archive.Events(ctx, eventType, limit)
}

// Leaderboard ranks the contributors and summarizes their scores.
type Leaderboard struct {
	Entries     []model.Contributor `json:"entries"`
	Count       int                 `json:"count"`
	MeanScore   float64             `json:"meanScore"`
	MedianScore float64             `json:"medianScore"`
}

// Leaderboard returns at most limit contributors in reward order. A limit <= 0 returns all.
func (a *App) Leaderboard(limit int) (Leaderboard, error) {
	contributors, err := a.engine.Contributors()
	if err != nil {
		return Leaderboard{}, err
	}

	sort.Slice(contributors, func(i, j int) bool {
		return contributors[i].Ranks(contributors[j])
	})

	board := Leaderboard{Count: len(contributors), Entries: contributors}
	if limit > 0 && limit < len(contributors) {
		board.Entries = contributors[:limit]
	}
	if len(contributors) == 0 {
		return board, nil
	}

	scores := make(stats.Float64Data, 0, len(contributors))
	for _, c := range contributors {
		scores = append(scores, float64(c.Score))
	}
	if board.MeanScore, err = stats.Mean(scores); err != nil {
		return Leaderboard{}, err
	}
	if board.MedianScore, err = stats.Median(scores); err != nil {
		return Leaderboard{}, err
	}
	return board, nil
}
