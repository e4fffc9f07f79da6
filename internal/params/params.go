package params

import (
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/state"
	"fmt"
)

const table = "params"

func key() string {
	return state.Address(table)
}

// Load returns the parameters stored at genesis.
func Load(tx state.Tx) (model.Params, error) {
	var p model.Params
	found, err := state.Load(tx, key(), &p)
	if err != nil {
		return model.Params{}, err
	}
	if !found {
		return model.Params{}, model.ErrNotInitialized
	}
	return p, nil
}

// Initialized reports whether genesis parameters exist.
func Initialized(tx state.Tx) (bool, error) {
	raw, err := tx.Get(key())
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// Store validates and saves the parameters. It fails if parameters already exist.
func Store(tx state.Tx, p model.Params) error {
	initialized, err := Initialized(tx)
	if err != nil {
		return err
	}
	if initialized {
		return model.ErrAlreadyInitialized
	}

	for _, group := range [][]model.Address{p.Governance, p.Founders, p.Verifiers} {
		for _, addr := range group {
			if !model.ValidAddress(addr) {
				return fmt.Errorf("params: %q: %w", addr, model.ErrInvalidAddress)
			}
		}
	}
	if len(p.Founders) == 0 {
		return fmt.Errorf("params: at least one founder is required: %w", model.ErrUnauthorized)
	}
	if len(p.Verifiers) == 0 {
		return fmt.Errorf("params: at least one verifier is required: %w", model.ErrUnauthorized)
	}
	if p.Quorum() > len(p.Verifiers) {
		return fmt.Errorf("params: verifier quorum %d exceeds %d verifiers: %w", p.Quorum(), len(p.Verifiers), model.ErrInvalidAmount)
	}
	if p.VotingDelay < 0 || p.DistributionGap < 0 {
		return fmt.Errorf("params: negative duration: %w", model.ErrInvalidAmount)
	}
	if p.DistributionGap != 0 && p.DistributionGap < model.DefaultDistributionGap {
		return fmt.Errorf("params: distribution gap %ds below %ds: %w",
			p.DistributionGap, model.DefaultDistributionGap, model.ErrInvalidAmount)
	}

	return state.Save(tx, key(), p)
}
