// Package rewards pays the monthly reward pool to the three best ranked contributors.
package rewards

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/governance"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"strconv"
	"strings"
)

const (
	stateTable = "rewards"
	slots      = 3
)

// Shares of the monthly pool in percent, by rank.
var shares = [slots]uint64{50, 30, 20}

// Status is the persisted state of the distributor.
type Status struct {
	LastDistribution int64  `cbor:"lastDistribution" json:"lastDistribution"`
	Distributions    uint64 `cbor:"distributions" json:"distributions"`
}

// Winner is a selected contributor and the amount paid to them.
type Winner struct {
	Rank        int               `json:"rank"`
	Contributor model.Contributor `json:"contributor"`
	Amount      model.Amount      `json:"amount"`
}

// Distributor runs the monthly distribution inside one state transaction.
type Distributor struct {
	tx       state.Tx
	call     model.Call
	rec      events.Recorder
	registry *governance.Registry
}

func New(tx state.Tx, call model.Call, rec events.Recorder) *Distributor {
	if rec == nil {
		rec = events.Discard{}
	}
	return &Distributor{tx: tx, call: call, rec: rec, registry: governance.New(tx, call, rec)}
}

// Status returns when the last distribution happened and how many there were.
func (d *Distributor) Status() (Status, error) {
	var s Status
	if _, err := state.Load(d.tx, state.Address(stateTable), &s); err != nil {
		return Status{}, err
	}
	return s, nil
}

// LastDistribution returns the time of the last successful distribution, zero if none.
func (d *Distributor) LastDistribution() (int64, error) {
	s, err := d.Status()
	return s.LastDistribution, err
}

// top selects the best eligible contributors in a single pass, keeping a sorted array of
// at most three entries.
func (d *Distributor) top() ([]model.Contributor, error) {
	var best [slots]model.Contributor
	n := 0

	err := d.registry.ForEachContributor(func(c model.Contributor) error {
		if !c.Eligible() {
			return nil
		}
		if n == slots && !c.Ranks(best[slots-1]) {
			return nil
		}
		i := n
		if n < slots {
			n++
		} else {
			i = slots - 1
		}
		for i > 0 && c.Ranks(best[i-1]) {
			best[i] = best[i-1]
			i--
		}
		best[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best[:n], nil
}

// Preview returns the contributors the next distribution would pay, without paying them.
func (d *Distributor) Preview() ([]Winner, error) {
	p, err := params.Load(d.tx)
	if err != nil {
		return nil, err
	}
	selected, err := d.top()
	if err != nil {
		return nil, err
	}

	winners := make([]Winner, 0, len(selected))
	for i, c := range selected {
		winners = append(winners, Winner{
			Rank:        i + 1,
			Contributor: c,
			Amount:      model.MulDiv(p.MonthlyRewardPool, shares[i], 100),
		})
	}
	return winners, nil
}

// DistributeMonthlyRewards pays the pool split to the top contributors from the treasury.
// Anyone may call it, at most once per distribution gap.
func (d *Distributor) DistributeMonthlyRewards() ([]Winner, error) {
	p, err := params.Load(d.tx)
	if err != nil {
		return nil, err
	}
	status, err := d.Status()
	if err != nil {
		return nil, err
	}
	if status.Distributions > 0 {
		next := status.LastDistribution + p.DistributionGapOrDefault()
		if d.call.Now < next {
			return nil, fmt.Errorf("distribute rewards: next distribution at %d: %w", next, model.ErrDistributionTooEarly)
		}
	}

	winners, err := d.Preview()
	if err != nil {
		return nil, err
	}

	payer := d.registry.Ledger().As(model.ModuleRewards)
	addrs := make([]string, 0, len(winners))
	amounts := make([]string, 0, len(winners))
	for i := range winners {
		w := &winners[i]
		if w.Amount > 0 {
			if err := payer.DistributeReward(w.Contributor.Address, w.Amount); err != nil {
				return nil, err
			}
		}

		c := w.Contributor
		c.Rewards = model.SaturatingAdd(c.Rewards, w.Amount)
		c.LastRewardAt = d.call.Now
		c.Trail = append(c.Trail, d.call.TxRef)
		if err := d.registry.SaveContributor(c); err != nil {
			return nil, err
		}
		w.Contributor = c

		addrs = append(addrs, c.Address)
		amounts = append(amounts, strconv.FormatUint(w.Amount, 10))
	}

	status.LastDistribution = d.call.Now
	status.Distributions++
	if err := state.Save(d.tx, state.Address(stateTable), status); err != nil {
		return nil, err
	}

	d.rec.Record(events.TypeRewardsDistributed, map[string]string{
		"period":  model.PeriodOf(d.call.Now),
		"pool":    strconv.FormatUint(p.MonthlyRewardPool, 10),
		"winners": strings.Join(addrs, ","),
		"amounts": strings.Join(amounts, ","),
	})
	return winners, nil
}
