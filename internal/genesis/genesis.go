// Package genesis reads the document that initializes an empty state.
package genesis

import (
	"contribution-ledger/internal/model"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Document holds the parameters and the initial distribution of the supply.
// Amounts are in the smallest unit.
type Document struct {
	Params      model.Params                   `yaml:"params"`
	Treasury    model.Amount                   `yaml:"treasury"`
	Allocations map[model.Address]model.Amount `yaml:"allocations"`
}

// Load reads and validates the genesis document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("failed to read the genesis file: " + err.Error())
	}
	return Parse(data)
}

// Parse decodes and validates a YAML genesis document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("failed to parse the genesis document: " + err.Error())
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func checkAddresses(field string, addrs []model.Address) error {
	var err error
	for _, addr := range addrs {
		if !model.ValidAddress(addr) {
			err = multierr.Append(err, fmt.Errorf("%s: %q: %w", field, addr, model.ErrInvalidAddress))
		}
	}
	return err
}

// Validate reports every problem of the document at once.
func (d *Document) Validate() error {
	var err error
	err = multierr.Append(err, checkAddresses("governance", d.Params.Governance))
	err = multierr.Append(err, checkAddresses("founders", d.Params.Founders))
	err = multierr.Append(err, checkAddresses("verifiers", d.Params.Verifiers))

	if len(d.Params.Founders) == 0 {
		err = multierr.Append(err, errors.New("founders: at least one founder is required"))
	}
	if len(d.Params.Verifiers) == 0 {
		err = multierr.Append(err, errors.New("verifiers: at least one verifier is required"))
	}
	if d.Params.Quorum() > len(d.Params.Verifiers) {
		err = multierr.Append(err, fmt.Errorf("verifierQuorum: %d exceeds %d verifiers", d.Params.Quorum(), len(d.Params.Verifiers)))
	}
	if d.Params.VotingDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("votingDelay: %w", model.ErrInvalidAmount))
	}
	if d.Params.DistributionGap < 0 || (d.Params.DistributionGap > 0 && d.Params.DistributionGap < model.DefaultDistributionGap) {
		err = multierr.Append(err, fmt.Errorf("distributionGap: at least %ds: %w", model.DefaultDistributionGap, model.ErrInvalidAmount))
	}

	total := d.Treasury
	for addr, amount := range d.Allocations {
		if !model.ValidAddress(addr) {
			err = multierr.Append(err, fmt.Errorf("allocations: %q: %w", addr, model.ErrInvalidAddress))
		}
		var ok bool
		if total, ok = model.AddAmounts(total, amount); !ok {
			err = multierr.Append(err, fmt.Errorf("allocations: total supply overflow: %w", model.ErrInvalidAmount))
		}
	}
	return err
}

// TotalSupply is the treasury plus all allocations.
func (d *Document) TotalSupply() model.Amount {
	total := d.Treasury
	for _, amount := range d.Allocations {
		total = model.SaturatingAdd(total, amount)
	}
	return total
}
