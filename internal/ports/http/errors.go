package http

import (
	"context"
	"contribution-ledger/internal/app"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/transaction"
	"errors"
	"net/http"
)

var (
	badRequestErrors = []error{
		model.ErrInvalidAddress,
		model.ErrInvalidAmount,
		model.ErrInvalidProposal,
		model.ErrInvalidSubmission,
		transaction.ErrMalformed,
		transaction.ErrPayloadMismatch,
		transaction.ErrWrongFamily,
		app.ErrUnknownAction,
		app.ErrMissingField,
	}
	forbiddenErrors = []error{
		model.ErrUnauthorized,
		model.ErrNoVotingPower,
		model.ErrFounderApprovalRequired,
	}
	notFoundErrors = []error{
		model.ErrProposalNotFound,
		model.ErrSubmissionNotFound,
		model.ErrContributorNotFound,
	}
	conflictErrors = []error{
		model.ErrInsufficientBalance,
		model.ErrInsufficientAllowance,
		model.ErrAlreadySubmitted,
		model.ErrAlreadyVerified,
		model.ErrDoubleVote,
		model.ErrVotingClosed,
		model.ErrVotingActive,
		model.ErrVotingNotStarted,
		model.ErrQuorumNotMet,
		model.ErrThresholdNotMet,
		model.ErrDistributionTooEarly,
		model.ErrProposalCancelled,
		model.ErrAlreadyExecuted,
		model.ErrDuplicateTransaction,
		model.ErrAlreadyInitialized,
	}
	unavailableErrors = []error{
		app.ErrArchiveDisabled,
		model.ErrNotInitialized,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusOf maps an error returned by the application to an HTTP status code.
func statusOf(err error) int {
	switch {
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, transaction.ErrInvalidSignature):
		return http.StatusUnauthorized
	case isAny(err, forbiddenErrors):
		return http.StatusForbidden
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, unavailableErrors):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
