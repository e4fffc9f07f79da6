package journal_test

import (
	"contribution-ledger/internal/journal"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/state"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendCalls(t *testing.T, store state.Store, n int) {
	for i := 1; i <= n; i++ {
		err := store.Update(func(tx state.Tx) error {
			_, err := journal.Append(tx, model.Call{Caller: "caller", TxRef: fmt.Sprintf("tx-%d", i), Now: int64(i)}, "transfer")
			return err
		})
		require.NoError(t, err)
	}
}

func TestAppendChainsEntries(t *testing.T) {
	store := state.NewMemoryStore()
	appendCalls(t, store, 3)

	require.NoError(t, store.View(func(tx state.Tx) error {
		head, err := journal.CurrentHead(tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), head.Sequence)

		first, err := journal.Get(tx, 1)
		require.NoError(t, err)
		second, err := journal.Get(tx, 2)
		require.NoError(t, err)
		assert.Equal(t, "genesis", first.PrevHash)
		assert.Equal(t, first.Hash, second.PrevHash)
		assert.Len(t, first.Hash, 128)

		seen, err := journal.Seen(tx, "tx-2")
		require.NoError(t, err)
		assert.True(t, seen)

		return journal.Verify(tx)
	}))
}

func TestAppendRejectsReplay(t *testing.T) {
	store := state.NewMemoryStore()
	appendCalls(t, store, 1)

	err := store.Update(func(tx state.Tx) error {
		_, err := journal.Append(tx, model.Call{TxRef: "tx-1"}, "transfer")
		return err
	})
	assert.ErrorIs(t, err, model.ErrDuplicateTransaction)
}

func TestVerifyDetectsTampering(t *testing.T) {
	store := state.NewMemoryStore()
	appendCalls(t, store, 3)

	err := store.Update(func(tx state.Tx) error {
		entry, err := journal.Get(tx, 2)
		if err != nil {
			return err
		}
		entry.Caller = "someone else"
		return state.Save(tx, state.Address("journal", "2"), entry)
	})
	require.NoError(t, err)

	err = store.View(journal.Verify)
	assert.ErrorIs(t, err, journal.ErrChainBroken)
}
