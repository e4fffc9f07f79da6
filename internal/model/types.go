package model

import "encoding/hex"

// Address identifies an account: the hex encoded compressed secp256k1 public key of its owner.
type Address = string

// Amount is a token quantity in the smallest unit.
type Amount = uint64

const (
	// Decimals of the UC token.
	Decimals = 6
	// UC is one whole token in smallest units.
	UC Amount = 1_000_000

	addressLength = 66

	secondsPerDay int64 = 24 * 60 * 60
)

// Module identities used by components calling into each other. They are never valid
// account addresses, so no external signer can impersonate them.
const (
	ModuleOracle     Address = "module:oracle"
	ModuleRewards    Address = "module:rewards"
	ModuleGovernance Address = "module:governance"
)

// Days converts a number of days to seconds.
func Days(n int64) int64 {
	return n * secondsPerDay
}

// ValidAddress reports whether addr is a well formed account address.
func ValidAddress(addr Address) bool {
	if len(addr) != addressLength {
		return false
	}
	if addr[0] != '0' || (addr[1] != '2' && addr[1] != '3') {
		return false
	}
	for _, c := range addr {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	_, err := hex.DecodeString(addr)
	return err == nil
}

// Call carries the identity and context of the call currently being applied.
type Call struct {
	Caller Address
	TxRef  string
	Now    int64
}

// As returns a copy of the call made on behalf of another identity.
func (c Call) As(caller Address) Call {
	c.Caller = caller
	return c
}

// Account is a ledger account. Accounts are never deleted.
type Account struct {
	Address  Address  `cbor:"address" json:"address"`
	Balance  Amount   `cbor:"balance" json:"balance"`
	Sequence uint64   `cbor:"sequence" json:"sequence"`
	History  []string `cbor:"history" json:"history"`
}

// Allowance is the amount a spender may move on behalf of an owner.
type Allowance struct {
	Owner   Address `cbor:"owner" json:"owner"`
	Spender Address `cbor:"spender" json:"spender"`
	Amount  Amount  `cbor:"amount" json:"amount"`
}

// Supply tracks the token totals. Circulating is the sum of all account balances.
type Supply struct {
	Total       Amount `cbor:"total" json:"total"`
	Treasury    Amount `cbor:"treasury" json:"treasury"`
	Circulating Amount `cbor:"circulating" json:"circulating"`
}

// Balanced reports whether the conservation invariant holds for the tracked totals.
func (s Supply) Balanced() bool {
	sum, ok := AddAmounts(s.Circulating, s.Treasury)
	return ok && sum == s.Total
}
