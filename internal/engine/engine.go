// Package engine hosts the ledger, the governance registry, the oracle bridge and the
// reward distributor. It serializes every call, supplies a monotonic clock and commits
// each call atomically.
package engine

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/genesis"
	"contribution-ledger/internal/journal"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// GenesisCaller is the identity recorded for the bootstrap call.
const GenesisCaller model.Address = "genesis"

// Publisher receives the events of committed calls.
type Publisher interface {
	Publish(events []events.Event)
}

// Origin identifies who submitted a call. An empty TxRef gets a random reference.
type Origin struct {
	Caller model.Address
	TxRef  string
}

type Engine struct {
	log   *zap.Logger
	store state.Store
	pub   Publisher
	mutex *deadlock.Mutex
	clock func() time.Time
	last  int64
}

func New(logger *zap.Logger, store state.Store, pub Publisher) *Engine {
	return &Engine{
		log:   logger,
		store: store,
		pub:   pub,
		mutex: &deadlock.Mutex{},
		clock: time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// tick returns the current time, never earlier than the time of a previous call.
// Must be called with the mutex held.
func (e *Engine) tick() int64 {
	now := e.clock().Unix()
	if now < e.last {
		now = e.last
	}
	e.last = now
	return now
}

// Now returns the time the next call would observe.
func (e *Engine) Now() int64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	now := e.clock().Unix()
	if now < e.last {
		return e.last
	}
	return now
}

type callFunc func(tx state.Tx, call model.Call, rec events.Recorder) error

// apply runs fn as one all-or-nothing call. Events are published only after commit.
func (e *Engine) apply(origin Origin, operation string, fn callFunc) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if origin.TxRef == "" {
		origin.TxRef = uuid.NewString()
	}
	call := model.Call{Caller: origin.Caller, TxRef: origin.TxRef, Now: e.tick()}
	buf := events.NewBuffer(call.TxRef, call.Now)

	var entry journal.Entry
	err := e.store.Update(func(tx state.Tx) error {
		var err error
		if entry, err = journal.Append(tx, call, operation); err != nil {
			return err
		}
		if err := fn(tx, call, buf); err != nil {
			return err
		}

		supply, err := ledger.New(tx, call, nil).Supply()
		if err != nil {
			return err
		}
		if !supply.Balanced() {
			return fmt.Errorf("%s: circulating %d + treasury %d != total %d: %w",
				operation, supply.Circulating, supply.Treasury, supply.Total, model.ErrInvariantViolation)
		}
		return nil
	})
	if err != nil {
		e.log.Debug("call rejected",
			zap.String("operation", operation),
			zap.String("caller", call.Caller),
			zap.String("txRef", call.TxRef),
			zap.Error(err))
		return err
	}

	e.log.Debug("call committed",
		zap.String("operation", operation),
		zap.String("caller", call.Caller),
		zap.Uint64("sequence", entry.Sequence))
	if e.pub != nil {
		evs := buf.Events()
		for i := range evs {
			evs[i].Sequence = entry.Sequence
		}
		e.pub.Publish(evs)
	}
	return nil
}

// view runs fn in a read-only transaction at the current time.
func (e *Engine) view(fn func(tx state.Tx, call model.Call) error) error {
	call := model.Call{Now: e.Now()}
	return e.store.View(func(tx state.Tx) error {
		return fn(tx, call)
	})
}

// Bootstrap initializes an empty state from a genesis document.
func (e *Engine) Bootstrap(doc *genesis.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	initialized, err := e.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return fmt.Errorf("bootstrap: %w", model.ErrAlreadyInitialized)
	}
	origin := Origin{Caller: GenesisCaller, TxRef: "genesis"}
	return e.apply(origin, "bootstrap", func(tx state.Tx, call model.Call, rec events.Recorder) error {
		if err := params.Store(tx, doc.Params); err != nil {
			return err
		}
		return ledger.New(tx, call, rec).Genesis(doc.Treasury, doc.Allocations)
	})
}

// Initialized reports whether the state was bootstrapped.
func (e *Engine) Initialized() (bool, error) {
	var initialized bool
	err := e.store.View(func(tx state.Tx) error {
		var err error
		initialized, err = params.Initialized(tx)
		return err
	})
	return initialized, err
}

// Params returns the genesis parameters.
func (e *Engine) Params() (model.Params, error) {
	var p model.Params
	err := e.store.View(func(tx state.Tx) error {
		var err error
		p, err = params.Load(tx)
		return err
	})
	return p, err
}

// JournalHead returns the newest journal position.
func (e *Engine) JournalHead() (journal.Head, error) {
	var head journal.Head
	err := e.store.View(func(tx state.Tx) error {
		var err error
		head, err = journal.CurrentHead(tx)
		return err
	})
	return head, err
}
