// Package oracle admits off-chain contribution scores once enough verifiers approved them.
package oracle

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/hashing"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"strconv"
	"strings"
)

const (
	submissionsTable = "submissions"
	latestTable      = "latest-submission"
)

func submissionKey(contributor model.Address, period string) string {
	return state.Address(submissionsTable, contributor, period)
}

func latestKey(contributor model.Address) string {
	return state.Address(latestTable, contributor)
}

// Bridge applies oracle operations inside one state transaction on behalf of call.Caller.
type Bridge struct {
	tx       state.Tx
	call     model.Call
	rec      events.Recorder
	registry *governance.Registry
}

func New(tx state.Tx, call model.Call, rec events.Recorder) *Bridge {
	if rec == nil {
		rec = events.Discard{}
	}
	return &Bridge{tx: tx, call: call, rec: rec, registry: governance.New(tx, call, rec)}
}

// content is the hashed part of a submission.
type content struct {
	Contributor model.Address        `cbor:"contributor"`
	Period      string               `cbor:"period"`
	Scores      model.CategoryScores `cbor:"scores"`
	CommitRef   string               `cbor:"commitRef"`
}

// DataHash returns the SHA-512 of the canonical encoding of the submitted data.
func DataHash(contributor model.Address, period string, scores model.CategoryScores, commitRef string) (string, error) {
	data, err := state.Encode(content{Contributor: contributor, Period: period, Scores: scores, CommitRef: commitRef})
	if err != nil {
		return "", err
	}
	return hashing.Calculate(data), nil
}

func (b *Bridge) authorize(op string) (model.Params, error) {
	p, err := params.Load(b.tx)
	if err != nil {
		return model.Params{}, err
	}
	if !p.IsVerifier(b.call.Caller) {
		return model.Params{}, fmt.Errorf("%s: caller %s: %w", op, b.call.Caller, model.ErrUnauthorized)
	}
	return p, nil
}

// Submission returns the submission of contributor for period.
func (b *Bridge) Submission(contributor model.Address, period string) (model.Submission, error) {
	var s model.Submission
	found, err := state.Load(b.tx, submissionKey(contributor, period), &s)
	if err != nil {
		return model.Submission{}, err
	}
	if !found {
		return model.Submission{}, fmt.Errorf("submission %s/%s: %w", contributor, period, model.ErrSubmissionNotFound)
	}
	return s, nil
}

// LatestSubmission returns the most recent submission of contributor.
func (b *Bridge) LatestSubmission(contributor model.Address) (model.Submission, error) {
	var period string
	found, err := state.Load(b.tx, latestKey(contributor), &period)
	if err != nil {
		return model.Submission{}, err
	}
	if !found {
		return model.Submission{}, fmt.Errorf("submission %s: %w", contributor, model.ErrSubmissionNotFound)
	}
	return b.Submission(contributor, period)
}

func (b *Bridge) save(s model.Submission) error {
	return state.Save(b.tx, submissionKey(s.Contributor, s.Period), s)
}

// SubmitScore stores an unverified score of contributor for the current evaluation period.
func (b *Bridge) SubmitScore(contributor model.Address, scores model.CategoryScores, commitRef string) (model.Submission, error) {
	if _, err := b.authorize("submit score"); err != nil {
		return model.Submission{}, err
	}
	if !model.ValidAddress(contributor) {
		return model.Submission{}, fmt.Errorf("submit score: %q: %w", contributor, model.ErrInvalidAddress)
	}
	if !scores.Valid() {
		return model.Submission{}, fmt.Errorf("submit score: category above %d: %w", model.MaxCategoryScore, model.ErrInvalidAmount)
	}
	commitRef = strings.TrimSpace(commitRef)
	if commitRef == "" {
		return model.Submission{}, fmt.Errorf("submit score: empty commit reference: %w", model.ErrInvalidSubmission)
	}

	period := model.PeriodOf(b.call.Now)
	raw, err := b.tx.Get(submissionKey(contributor, period))
	if err != nil {
		return model.Submission{}, err
	}
	if raw != nil {
		return model.Submission{}, fmt.Errorf("submit score: %s/%s: %w", contributor, period, model.ErrAlreadySubmitted)
	}

	dataHash, err := DataHash(contributor, period, scores, commitRef)
	if err != nil {
		return model.Submission{}, err
	}
	s := model.Submission{
		Submitter:   b.call.Caller,
		Contributor: contributor,
		Period:      period,
		Scores:      scores,
		Composite:   scores.Composite(),
		CommitRef:   commitRef,
		DataHash:    dataHash,
		Level:       model.LevelUnverified,
		SubmittedAt: b.call.Now,
	}
	if err := b.save(s); err != nil {
		return model.Submission{}, err
	}
	if err := state.Save(b.tx, latestKey(contributor), period); err != nil {
		return model.Submission{}, err
	}

	b.rec.Record(events.TypeScoreSubmitted, map[string]string{
		"contributor": contributor,
		"period":      period,
		"composite":   strconv.FormatUint(uint64(s.Composite), 10),
		"commitRef":   commitRef,
		"dataHash":    dataHash,
	})
	return s, nil
}

// VerifyAndRegister adds the caller's approval to the latest submission of contributor.
// Once the verifier quorum is reached the submission is registered with the governance
// registry in the same call. A registered submission is never applied again.
func (b *Bridge) VerifyAndRegister(contributor model.Address) (model.Submission, error) {
	p, err := b.authorize("verify and register")
	if err != nil {
		return model.Submission{}, err
	}
	s, err := b.LatestSubmission(contributor)
	if err != nil {
		return model.Submission{}, err
	}
	if s.Level == model.LevelRegistered {
		return model.Submission{}, fmt.Errorf("verify and register: %s/%s: %w", contributor, s.Period, model.ErrAlreadyVerified)
	}
	if s.ApprovedBy(b.call.Caller) {
		return model.Submission{}, fmt.Errorf("verify and register: %s already approved %s/%s: %w",
			b.call.Caller, contributor, s.Period, model.ErrAlreadyVerified)
	}

	s.Verifiers = append(s.Verifiers, b.call.Caller)
	s.Level = model.LevelVerified
	if s.VerifierCount() >= p.Quorum() {
		s.Level = model.LevelRegistered
		s.RegisteredAt = b.call.Now
		err := b.registry.As(model.ModuleOracle).RegisterOrUpdateContributor(contributor, s.Composite, s.CommitRef)
		if err != nil {
			return model.Submission{}, err
		}
	}
	if err := b.save(s); err != nil {
		return model.Submission{}, err
	}

	b.rec.Record(events.TypeScoreVerified, map[string]string{
		"contributor": contributor,
		"period":      s.Period,
		"verifier":    b.call.Caller,
		"approvals":   strconv.Itoa(s.VerifierCount()),
		"level":       s.Level.String(),
	})
	return s, nil
}
