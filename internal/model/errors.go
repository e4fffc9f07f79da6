package model

import "errors"

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadySubmitted      = errors.New("score already submitted for this period")
	ErrAlreadyVerified       = errors.New("submission already verified")
	ErrDoubleVote            = errors.New("already voted")
	ErrVotingClosed          = errors.New("voting closed")
	ErrVotingActive          = errors.New("proposal is not in the required phase")
	ErrQuorumNotMet          = errors.New("quorum not met")
	ErrThresholdNotMet       = errors.New("approval threshold not met")
	ErrDistributionTooEarly  = errors.New("distribution too early")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrTierMismatch          = errors.New("tier does not match score")

	ErrVotingNotStarted        = errors.New("voting has not started")
	ErrNoVotingPower           = errors.New("no voting power")
	ErrInvalidProposal         = errors.New("invalid proposal")
	ErrProposalCancelled       = errors.New("proposal cancelled")
	ErrAlreadyExecuted         = errors.New("proposal already executed")
	ErrFounderApprovalRequired = errors.New("founder approval required")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrInvalidSubmission       = errors.New("invalid submission")
	ErrContributorNotFound     = errors.New("contributor not found")
	ErrDuplicateTransaction    = errors.New("duplicate transaction")
	ErrAlreadyInitialized      = errors.New("state already initialized")
	ErrNotInitialized          = errors.New("state not initialized")
	ErrInvariantViolation      = errors.New("supply invariant violated")
)
