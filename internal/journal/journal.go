// Package journal keeps an append-only, hash-chained record of every committed call
// and guards against replayed transaction references.
package journal

import (
	"contribution-ledger/internal/hashing"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/state"
	"errors"
	"fmt"
	"strconv"
)

const (
	entriesTable   = "journal"
	headTable      = "journal-head"
	processedTable = "processed"

	genesisHash = "genesis"
)

var ErrChainBroken = errors.New("journal chain broken")

// Entry is an immutable, hash-chained journal entry.
type Entry struct {
	Sequence  uint64        `cbor:"sequence" json:"sequence"`
	TxRef     string        `cbor:"txRef" json:"txRef"`
	Operation string        `cbor:"operation" json:"operation"`
	Caller    model.Address `cbor:"caller" json:"caller"`
	Timestamp int64         `cbor:"timestamp" json:"timestamp"`
	PrevHash  string        `cbor:"prevHash" json:"prevHash"`
	Hash      string        `cbor:"hash" json:"hash"`
}

// Head is the position of the newest entry.
type Head struct {
	Sequence uint64 `cbor:"sequence" json:"sequence"`
	Hash     string `cbor:"hash" json:"hash"`
}

func entryKey(seq uint64) string {
	return state.Address(entriesTable, strconv.FormatUint(seq, 10))
}

func processedKey(txRef string) string {
	return state.Address(processedTable, txRef)
}

func computeHash(e Entry) (string, error) {
	hashInput := struct {
		Seq       uint64 `cbor:"seq"`
		TxRef     string `cbor:"txRef"`
		Operation string `cbor:"op"`
		Caller    string `cbor:"caller"`
		Timestamp int64  `cbor:"ts"`
		PrevHash  string `cbor:"prev"`
	}{e.Sequence, e.TxRef, e.Operation, e.Caller, e.Timestamp, e.PrevHash}

	raw, err := state.Encode(hashInput)
	if err != nil {
		return "", err
	}
	return hashing.Calculate(raw), nil
}

// CurrentHead returns the newest entry position. An empty journal is at sequence 0.
func CurrentHead(tx state.Tx) (Head, error) {
	head := Head{Hash: genesisHash}
	if _, err := state.Load(tx, state.Address(headTable), &head); err != nil {
		return Head{}, err
	}
	return head, nil
}

// Seen reports whether a call with txRef was already committed.
func Seen(tx state.Tx, txRef string) (bool, error) {
	raw, err := tx.Get(processedKey(txRef))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// Append chains a new entry for the call and marks its transaction reference as processed.
func Append(tx state.Tx, call model.Call, operation string) (Entry, error) {
	seen, err := Seen(tx, call.TxRef)
	if err != nil {
		return Entry{}, err
	}
	if seen {
		return Entry{}, fmt.Errorf("%s: %w", call.TxRef, model.ErrDuplicateTransaction)
	}

	head, err := CurrentHead(tx)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Sequence:  head.Sequence + 1,
		TxRef:     call.TxRef,
		Operation: operation,
		Caller:    call.Caller,
		Timestamp: call.Now,
		PrevHash:  head.Hash,
	}
	if entry.Hash, err = computeHash(entry); err != nil {
		return Entry{}, err
	}

	if err := state.Save(tx, entryKey(entry.Sequence), entry); err != nil {
		return Entry{}, err
	}
	if err := state.Save(tx, processedKey(call.TxRef), entry.Sequence); err != nil {
		return Entry{}, err
	}
	if err := state.Save(tx, state.Address(headTable), Head{Sequence: entry.Sequence, Hash: entry.Hash}); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Get retrieves an entry by sequence number.
func Get(tx state.Tx, seq uint64) (Entry, error) {
	var e Entry
	found, err := state.Load(tx, entryKey(seq), &e)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, fmt.Errorf("journal entry %d not found", seq)
	}
	return e, nil
}

// Verify walks the whole chain and recomputes every hash.
func Verify(tx state.Tx) error {
	head, err := CurrentHead(tx)
	if err != nil {
		return err
	}

	prevHash := genesisHash
	for seq := uint64(1); seq <= head.Sequence; seq++ {
		entry, err := Get(tx, seq)
		if err != nil {
			return err
		}
		if entry.PrevHash != prevHash {
			return fmt.Errorf("entry %d: expected prev %s, got %s: %w", seq, prevHash, entry.PrevHash, ErrChainBroken)
		}
		computed, err := computeHash(entry)
		if err != nil {
			return err
		}
		if computed != entry.Hash {
			return fmt.Errorf("entry %d: hash mismatch: %w", seq, ErrChainBroken)
		}
		prevHash = entry.Hash
	}

	if prevHash != head.Hash {
		return fmt.Errorf("head %d does not match the last entry: %w", head.Sequence, ErrChainBroken)
	}
	return nil
}
