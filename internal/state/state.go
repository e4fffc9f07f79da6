// Package state provides the transactional key-value store that backs the engine.
// Every call runs inside one Update, so its writes become visible all at once or not at all.
package state

import (
	"errors"
)

var ErrReadOnly = errors.New("write in a read-only transaction")

// Tx is a view of the store inside a single transaction.
// Get returns nil when the key does not exist.
type Tx interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Scan calls fn for every key with the given prefix, in key order.
	Scan(prefix string, fn func(key string, value []byte) error) error
}

// Store applies batches of operations atomically.
type Store interface {
	// View runs fn in a read-only transaction.
	View(fn func(Tx) error) error
	// Update runs fn in a read-write transaction. The changes are committed only if fn
	// returns nil; otherwise none of them are applied.
	Update(fn func(Tx) error) error
	Close() error
}
