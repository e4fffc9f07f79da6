// Package governance keeps the contributor registry and runs proposal voting.
package governance

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/ledger"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"strconv"
)

const contributorsTable = "contributors"

func contributorKey(addr model.Address) string {
	return state.Address(contributorsTable, addr)
}

// Registry applies governance operations inside one state transaction on behalf of call.Caller.
type Registry struct {
	tx     state.Tx
	call   model.Call
	rec    events.Recorder
	ledger *ledger.Ledger
}

func New(tx state.Tx, call model.Call, rec events.Recorder) *Registry {
	if rec == nil {
		rec = events.Discard{}
	}
	return &Registry{tx: tx, call: call, rec: rec, ledger: ledger.New(tx, call, rec)}
}

// As returns a registry acting under another identity in the same transaction.
func (r *Registry) As(caller model.Address) *Registry {
	return &Registry{tx: r.tx, call: r.call.As(caller), rec: r.rec, ledger: r.ledger.As(caller)}
}

// Ledger returns the ledger bound to the same transaction and caller.
func (r *Registry) Ledger() *ledger.Ledger {
	return r.ledger
}

// Contributor returns the registered contributor at addr.
func (r *Registry) Contributor(addr model.Address) (model.Contributor, error) {
	var c model.Contributor
	found, err := state.Load(r.tx, contributorKey(addr), &c)
	if err != nil {
		return model.Contributor{}, err
	}
	if !found {
		return model.Contributor{}, fmt.Errorf("contributor %s: %w", addr, model.ErrContributorNotFound)
	}
	return c, nil
}

// SaveContributor stores c. Used by the reward distributor to record payouts.
func (r *Registry) SaveContributor(c model.Contributor) error {
	return state.Save(r.tx, contributorKey(c.Address), c)
}

// ForEachContributor calls fn for every contributor, in state key order.
func (r *Registry) ForEachContributor(fn func(model.Contributor) error) error {
	return r.tx.Scan(state.TablePrefix(contributorsTable), func(_ string, raw []byte) error {
		var c model.Contributor
		if err := state.Decode(raw, &c); err != nil {
			return err
		}
		return fn(c)
	})
}

// Contributors returns all contributors.
func (r *Registry) Contributors() ([]model.Contributor, error) {
	var out []model.Contributor
	err := r.ForEachContributor(func(c model.Contributor) error {
		out = append(out, c)
		return nil
	})
	return out, err
}

// RegisterOrUpdateContributor records a verified composite score. Only the oracle may call it.
func (r *Registry) RegisterOrUpdateContributor(addr model.Address, score uint32, evidenceRef string) error {
	if r.call.Caller != model.ModuleOracle {
		return fmt.Errorf("register contributor: caller %s: %w", r.call.Caller, model.ErrUnauthorized)
	}
	if !model.ValidAddress(addr) {
		return fmt.Errorf("register contributor: %q: %w", addr, model.ErrInvalidAddress)
	}
	if score > model.MaxCategoryScore {
		return fmt.Errorf("register contributor: score %d: %w", score, model.ErrInvalidAmount)
	}

	var c model.Contributor
	found, err := state.Load(r.tx, contributorKey(addr), &c)
	if err != nil {
		return err
	}
	if !found {
		c = model.Contributor{Address: addr, JoinedAt: r.call.Now}
		if err := r.ledger.Register(addr); err != nil {
			return err
		}
	}

	previous := c.Tier
	c.Score = score
	c.Tier = model.TierFor(score)
	c.Points = model.SaturatingAdd(c.Points, uint64(score))
	c.Registrations++
	c.Trail = append(c.Trail, r.call.TxRef)
	if evidenceRef != "" {
		c.Trail = append(c.Trail, evidenceRef)
	}
	if err := r.SaveContributor(c); err != nil {
		return err
	}

	r.rec.Record(events.TypeContributorRegistered, map[string]string{
		"address":  addr,
		"score":    strconv.FormatUint(uint64(score), 10),
		"tier":     c.Tier.String(),
		"evidence": evidenceRef,
	})
	if c.Tier != previous {
		r.rec.Record(events.TypeTierChanged, map[string]string{
			"address": addr,
			"from":    previous.String(),
			"to":      c.Tier.String(),
		})
	}
	return nil
}

// VotingPowerOf returns the live voting power of addr: balance times the tier multiplier.
func (r *Registry) VotingPowerOf(addr model.Address) (model.Amount, error) {
	balance, err := r.ledger.BalanceOf(addr)
	if err != nil {
		return 0, err
	}
	return r.powerOf(addr, balance)
}

func (r *Registry) powerOf(addr model.Address, balance model.Amount) (model.Amount, error) {
	if balance == 0 {
		return 0, nil
	}
	tier := model.TierNone
	var c model.Contributor
	found, err := state.Load(r.tx, contributorKey(addr), &c)
	if err != nil {
		return 0, err
	}
	if found {
		tier = c.Tier
	}
	return model.MulDiv(balance, tier.Multiplier(), model.MultiplierScale), nil
}

// VerifyTiers checks that every stored tier matches the tier of the stored score.
func (r *Registry) VerifyTiers() error {
	return r.ForEachContributor(func(c model.Contributor) error {
		if want := model.TierFor(c.Score); c.Tier != want {
			return fmt.Errorf("contributor %s has tier %s for score %d, want %s: %w",
				c.Address, c.Tier, c.Score, want, model.ErrTierMismatch)
		}
		return nil
	})
}

func (r *Registry) params() (model.Params, error) {
	return params.Load(r.tx)
}
