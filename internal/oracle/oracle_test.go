package oracle_test

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/oracle"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(i int) model.Address {
	return fmt.Sprintf("02%064x", i)
}

var (
	alice = addr(1)
	bob   = addr(2)
	v1    = addr(10)
	v2    = addr(11)
	v3    = addr(12)

	march = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC).Unix()
	april = time.Date(2024, time.April, 2, 8, 0, 0, 0, time.UTC).Unix()

	scores = model.CategoryScores{CodeQuality: 90, Impact: 80, Documentation: 70, Innovation: 60, Integration: 50}
)

func newStore(t *testing.T, quorum uint32, verifiers ...model.Address) *state.MemoryStore {
	store := state.NewMemoryStore()
	err := store.Update(func(tx state.Tx) error {
		if err := params.Store(tx, model.Params{
			Founders:       []model.Address{addr(999)},
			Verifiers:      verifiers,
			VerifierQuorum: quorum,
		}); err != nil {
			return err
		}
		return ledger.New(tx, model.Call{TxRef: "genesis"}, nil).Genesis(1000, nil)
	})
	require.NoError(t, err)
	return store
}

func submit(store state.Store, caller model.Address, now int64, who model.Address, s model.CategoryScores, commit string) (model.Submission, []events.Event, error) {
	buf := events.NewBuffer("submit", now)
	var out model.Submission
	err := store.Update(func(tx state.Tx) error {
		var err error
		out, err = oracle.New(tx, model.Call{Caller: caller, TxRef: "submit", Now: now}, buf).SubmitScore(who, s, commit)
		return err
	})
	return out, buf.Events(), err
}

func verify(store state.Store, caller model.Address, now int64, who model.Address) (model.Submission, []events.Event, error) {
	buf := events.NewBuffer("verify", now)
	var out model.Submission
	err := store.Update(func(tx state.Tx) error {
		var err error
		out, err = oracle.New(tx, model.Call{Caller: caller, TxRef: "verify", Now: now}, buf).VerifyAndRegister(who)
		return err
	})
	return out, buf.Events(), err
}

func contributor(t *testing.T, store state.Store, who model.Address) (model.Contributor, error) {
	var c model.Contributor
	var err error
	require.NoError(t, store.View(func(tx state.Tx) error {
		c, err = governance.New(tx, model.Call{}, nil).Contributor(who)
		return nil
	}))
	return c, err
}

func TestSubmitScore(t *testing.T) {
	store := newStore(t, 2, v1, v2, v3)

	_, _, err := submit(store, alice, march, alice, scores, "abc123")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	tooHigh := scores
	tooHigh.Impact = 101
	_, _, err = submit(store, v1, march, alice, tooHigh, "abc123")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, _, err = submit(store, v1, march, alice, scores, " ")
	assert.ErrorIs(t, err, model.ErrInvalidSubmission)

	_, _, err = submit(store, v1, march, "not-an-address", scores, "abc123")
	assert.ErrorIs(t, err, model.ErrInvalidAddress)

	s, evs, err := submit(store, v1, march, alice, scores, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", s.Period)
	assert.Equal(t, uint32(74), s.Composite)
	assert.Equal(t, model.LevelUnverified, s.Level)
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeScoreSubmitted, evs[0].Type)

	hash, err := oracle.DataHash(alice, "2024-03", scores, "abc123")
	require.NoError(t, err)
	assert.Equal(t, hash, s.DataHash)
	assert.Len(t, hash, 128)

	_, _, err = submit(store, v2, march+60, alice, scores, "def456")
	assert.ErrorIs(t, err, model.ErrAlreadySubmitted)

	next, _, err := submit(store, v2, april, alice, scores, "def456")
	require.NoError(t, err)
	assert.Equal(t, "2024-04", next.Period)
	assert.NotEqual(t, s.DataHash, next.DataHash)
}

func TestVerifyAndRegisterQuorum(t *testing.T) {
	store := newStore(t, 2, v1, v2, v3)
	_, _, err := submit(store, v1, march, alice, scores, "abc123")
	require.NoError(t, err)

	s, evs, err := verify(store, v1, march+1, alice)
	require.NoError(t, err)
	assert.Equal(t, model.LevelVerified, s.Level)
	require.Len(t, evs, 1)
	assert.Equal(t, "1", evs[0].Attributes["approvals"])
	_, err = contributor(t, store, alice)
	assert.ErrorIs(t, err, model.ErrContributorNotFound)

	_, _, err = verify(store, v1, march+2, alice)
	assert.ErrorIs(t, err, model.ErrAlreadyVerified)

	s, evs, err = verify(store, v2, march+3, alice)
	require.NoError(t, err)
	assert.Equal(t, model.LevelRegistered, s.Level)
	assert.Equal(t, []model.Address{v1, v2}, s.Verifiers)
	assert.Equal(t, march+3, s.RegisteredAt)

	types := make([]string, 0, len(evs))
	for _, e := range evs {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.TypeContributorRegistered, events.TypeTierChanged, events.TypeScoreVerified}, types)

	c, err := contributor(t, store, alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(74), c.Score)
	assert.Equal(t, model.TierSilver, c.Tier)
	assert.Equal(t, uint32(1), c.Registrations)
}

func TestRegisteredSubmissionFailsClosed(t *testing.T) {
	store := newStore(t, 0, v1)
	_, _, err := submit(store, v1, march, alice, scores, "abc123")
	require.NoError(t, err)

	s, _, err := verify(store, v1, march+1, alice)
	require.NoError(t, err)
	assert.Equal(t, model.LevelRegistered, s.Level)

	_, evs, err := verify(store, v1, march+2, alice)
	assert.ErrorIs(t, err, model.ErrAlreadyVerified)
	assert.Empty(t, evs)

	c, err := contributor(t, store, alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(74), c.Score)
	assert.Equal(t, uint64(74), c.Points)
	assert.Equal(t, uint32(1), c.Registrations)
}

func TestVerifyWithoutSubmission(t *testing.T) {
	store := newStore(t, 0, v1)

	_, _, err := verify(store, v1, march, bob)
	assert.ErrorIs(t, err, model.ErrSubmissionNotFound)

	_, _, err = verify(store, bob, march, bob)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestLatestSubmissionFollowsPeriods(t *testing.T) {
	store := newStore(t, 0, v1)
	_, _, err := submit(store, v1, march, alice, scores, "abc123")
	require.NoError(t, err)
	_, _, err = verify(store, v1, march+1, alice)
	require.NoError(t, err)

	better := model.CategoryScores{CodeQuality: 95, Impact: 95, Documentation: 90, Innovation: 90, Integration: 90}
	_, _, err = submit(store, v1, april, alice, better, "fff000")
	require.NoError(t, err)
	_, _, err = verify(store, v1, april+1, alice)
	require.NoError(t, err)

	require.NoError(t, store.View(func(tx state.Tx) error {
		b := oracle.New(tx, model.Call{}, nil)
		latest, err := b.LatestSubmission(alice)
		require.NoError(t, err)
		assert.Equal(t, "2024-04", latest.Period)

		old, err := b.Submission(alice, "2024-03")
		require.NoError(t, err)
		assert.Equal(t, model.LevelRegistered, old.Level)
		return nil
	}))

	c, err := contributor(t, store, alice)
	require.NoError(t, err)
	assert.Equal(t, model.TierPlatinum, c.Tier)
	assert.Equal(t, uint32(2), c.Registrations)
}
