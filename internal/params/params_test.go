package params_test

import (
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() model.Params {
	return model.Params{
		Governance:     []model.Address{fmt.Sprintf("02%064x", 1)},
		Founders:       []model.Address{fmt.Sprintf("02%064x", 1)},
		Verifiers:      []model.Address{fmt.Sprintf("02%064x", 2), fmt.Sprintf("02%064x", 3)},
		VerifierQuorum: 2,
	}
}

func TestStoreOnce(t *testing.T) {
	store := state.NewMemoryStore()

	err := store.View(func(tx state.Tx) error {
		_, err := params.Load(tx)
		return err
	})
	assert.ErrorIs(t, err, model.ErrNotInitialized)

	require.NoError(t, store.Update(func(tx state.Tx) error {
		return params.Store(tx, valid())
	}))

	err = store.Update(func(tx state.Tx) error {
		return params.Store(tx, valid())
	})
	assert.ErrorIs(t, err, model.ErrAlreadyInitialized)

	require.NoError(t, store.View(func(tx state.Tx) error {
		p, err := params.Load(tx)
		require.NoError(t, err)
		assert.Equal(t, 2, p.Quorum())
		return nil
	}))
}

func TestStoreValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *model.Params)
		err    error
	}{
		{"bad address", func(p *model.Params) { p.Founders = []model.Address{"founder"} }, model.ErrInvalidAddress},
		{"no verifiers", func(p *model.Params) { p.Verifiers = nil; p.VerifierQuorum = 0 }, model.ErrUnauthorized},
		{"quorum too high", func(p *model.Params) { p.VerifierQuorum = 3 }, model.ErrInvalidAmount},
		{"negative delay", func(p *model.Params) { p.VotingDelay = -1 }, model.ErrInvalidAmount},
		{"no founders", func(p *model.Params) { p.Founders = nil }, model.ErrUnauthorized},
		{"distribution gap too short", func(p *model.Params) { p.DistributionGap = 60 }, model.ErrInvalidAmount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid()
			tc.modify(&p)
			err := state.NewMemoryStore().Update(func(tx state.Tx) error {
				return params.Store(tx, p)
			})
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
