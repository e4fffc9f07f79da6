// Package ledger keeps UC balances, allowances, the treasury and the total supply.
package ledger

import (
	"contribution-ledger/internal/events"
	"contribution-ledger/internal/model"
	"contribution-ledger/internal/params"
	"contribution-ledger/internal/state"
	"fmt"
	"strconv"
)

const (
	accountsTable   = "accounts"
	allowancesTable = "allowances"
	supplyTable     = "supply"
)

func accountKey(addr model.Address) string {
	return state.Address(accountsTable, addr)
}

func allowanceKey(owner, spender model.Address) string {
	return state.Address(allowancesTable, owner, spender)
}

func supplyKey() string {
	return state.Address(supplyTable)
}

// Ledger applies token operations inside one state transaction on behalf of call.Caller.
type Ledger struct {
	tx   state.Tx
	call model.Call
	rec  events.Recorder
}

func New(tx state.Tx, call model.Call, rec events.Recorder) *Ledger {
	if rec == nil {
		rec = events.Discard{}
	}
	return &Ledger{tx: tx, call: call, rec: rec}
}

// As returns a ledger acting under another identity in the same transaction.
func (l *Ledger) As(caller model.Address) *Ledger {
	return &Ledger{tx: l.tx, call: l.call.As(caller), rec: l.rec}
}

func formatAmount(a model.Amount) string {
	return strconv.FormatUint(a, 10)
}

func checkAmount(op string, amount model.Amount) error {
	if amount == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrInvalidAmount)
	}
	return nil
}

func checkAddresses(op string, addrs ...model.Address) error {
	for _, addr := range addrs {
		if !model.ValidAddress(addr) {
			return fmt.Errorf("%s: %q: %w", op, addr, model.ErrInvalidAddress)
		}
	}
	return nil
}

func (l *Ledger) authorize(op string, allowed func(model.Params, model.Address) bool) error {
	p, err := params.Load(l.tx)
	if err != nil {
		return err
	}
	if !allowed(p, l.call.Caller) {
		return fmt.Errorf("%s: caller %s: %w", op, l.call.Caller, model.ErrUnauthorized)
	}
	return nil
}

func isGovernance(p model.Params, caller model.Address) bool {
	return p.IsGovernance(caller)
}

func isRewardPayer(p model.Params, caller model.Address) bool {
	return caller == model.ModuleRewards || p.IsGovernance(caller)
}

// Account returns the account of addr. A missing account is returned with a zero balance.
func (l *Ledger) Account(addr model.Address) (model.Account, error) {
	acc := model.Account{Address: addr}
	if _, err := state.Load(l.tx, accountKey(addr), &acc); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// Exists reports whether an account was created for addr.
func (l *Ledger) Exists(addr model.Address) (bool, error) {
	raw, err := l.tx.Get(accountKey(addr))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

func (l *Ledger) saveAccount(acc model.Account) error {
	return state.Save(l.tx, accountKey(acc.Address), acc)
}

// BalanceOf returns the balance of addr.
func (l *Ledger) BalanceOf(addr model.Address) (model.Amount, error) {
	acc, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Allowance returns the amount spender may still move from owner.
func (l *Ledger) Allowance(owner, spender model.Address) (model.Amount, error) {
	var a model.Allowance
	if _, err := state.Load(l.tx, allowanceKey(owner, spender), &a); err != nil {
		return 0, err
	}
	return a.Amount, nil
}

func (l *Ledger) setAllowance(owner, spender model.Address, amount model.Amount) error {
	err := state.Save(l.tx, allowanceKey(owner, spender), model.Allowance{Owner: owner, Spender: spender, Amount: amount})
	if err != nil {
		return err
	}
	l.rec.Record(events.TypeApproval, map[string]string{
		"owner":   owner,
		"spender": spender,
		"amount":  formatAmount(amount),
	})
	return nil
}

// Supply returns the token totals.
func (l *Ledger) Supply() (model.Supply, error) {
	var s model.Supply
	if _, err := state.Load(l.tx, supplyKey(), &s); err != nil {
		return model.Supply{}, err
	}
	return s, nil
}

func (l *Ledger) saveSupply(s model.Supply) error {
	return state.Save(l.tx, supplyKey(), s)
}

// Register creates an empty account for addr if it does not exist yet.
func (l *Ledger) Register(addr model.Address) error {
	if err := checkAddresses("register", addr); err != nil {
		return err
	}
	exists, err := l.Exists(addr)
	if err != nil || exists {
		return err
	}
	return l.saveAccount(model.Account{Address: addr, History: []string{l.call.TxRef}})
}

func (l *Ledger) debit(acc *model.Account, amount model.Amount) error {
	if acc.Balance < amount {
		return model.ErrInsufficientBalance
	}
	acc.Balance -= amount
	acc.Sequence++
	acc.History = append(acc.History, l.call.TxRef)
	return nil
}

func (l *Ledger) credit(acc *model.Account, amount model.Amount) error {
	sum, ok := model.AddAmounts(acc.Balance, amount)
	if !ok {
		return model.ErrInvalidAmount
	}
	acc.Balance = sum
	acc.History = append(acc.History, l.call.TxRef)
	return nil
}

func (l *Ledger) move(op string, from, to model.Address, amount model.Amount) error {
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	if err := l.debit(&src, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if from == to {
		// the debit already recorded the call
		src.Balance += amount
		if err := l.saveAccount(src); err != nil {
			return err
		}
	} else {
		dst, err := l.Account(to)
		if err != nil {
			return err
		}
		if err := l.credit(&dst, amount); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := l.saveAccount(src); err != nil {
			return err
		}
		if err := l.saveAccount(dst); err != nil {
			return err
		}
	}

	l.rec.Record(events.TypeTransfer, map[string]string{
		"from":   from,
		"to":     to,
		"amount": formatAmount(amount),
	})
	return nil
}

// Transfer moves amount from sender to recipient.
func (l *Ledger) Transfer(sender, recipient model.Address, amount model.Amount) error {
	if err := checkAmount("transfer", amount); err != nil {
		return err
	}
	if err := checkAddresses("transfer", sender, recipient); err != nil {
		return err
	}
	return l.move("transfer", sender, recipient, amount)
}

// Approve sets the allowance of spender over the funds of owner.
func (l *Ledger) Approve(owner, spender model.Address, amount model.Amount) error {
	if err := checkAmount("approve", amount); err != nil {
		return err
	}
	if err := checkAddresses("approve", owner, spender); err != nil {
		return err
	}
	return l.setAllowance(owner, spender, amount)
}

func (l *Ledger) IncreaseAllowance(owner, spender model.Address, amount model.Amount) error {
	if err := checkAmount("increase allowance", amount); err != nil {
		return err
	}
	if err := checkAddresses("increase allowance", owner, spender); err != nil {
		return err
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	sum, ok := model.AddAmounts(current, amount)
	if !ok {
		return fmt.Errorf("increase allowance: %w", model.ErrInvalidAmount)
	}
	return l.setAllowance(owner, spender, sum)
}

func (l *Ledger) DecreaseAllowance(owner, spender model.Address, amount model.Amount) error {
	if err := checkAmount("decrease allowance", amount); err != nil {
		return err
	}
	if err := checkAddresses("decrease allowance", owner, spender); err != nil {
		return err
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if current < amount {
		return fmt.Errorf("decrease allowance: %w", model.ErrInsufficientAllowance)
	}
	return l.setAllowance(owner, spender, current-amount)
}

// TransferFrom moves amount from owner to recipient using the allowance granted to spender.
func (l *Ledger) TransferFrom(spender, owner, recipient model.Address, amount model.Amount) error {
	if err := checkAmount("transfer from", amount); err != nil {
		return err
	}
	if err := checkAddresses("transfer from", spender, owner, recipient); err != nil {
		return err
	}
	allowed, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowed < amount {
		return fmt.Errorf("transfer from: %w", model.ErrInsufficientAllowance)
	}
	if err := l.move("transfer from", owner, recipient, amount); err != nil {
		return err
	}
	return l.setAllowance(owner, spender, allowed-amount)
}

// Mint creates amount new tokens on account. Governance only.
func (l *Ledger) Mint(account model.Address, amount model.Amount) error {
	if err := checkAmount("mint", amount); err != nil {
		return err
	}
	if err := checkAddresses("mint", account); err != nil {
		return err
	}
	if err := l.authorize("mint", isGovernance); err != nil {
		return err
	}

	supply, err := l.Supply()
	if err != nil {
		return err
	}
	total, ok := model.AddAmounts(supply.Total, amount)
	if !ok {
		return fmt.Errorf("mint: total supply overflow: %w", model.ErrInvalidAmount)
	}
	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	if err := l.credit(&acc, amount); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	supply.Total = total
	supply.Circulating += amount

	if err := l.saveAccount(acc); err != nil {
		return err
	}
	if err := l.saveSupply(supply); err != nil {
		return err
	}
	l.rec.Record(events.TypeMint, map[string]string{
		"to":     account,
		"amount": formatAmount(amount),
	})
	return nil
}

// Burn destroys amount tokens of account. Governance only.
func (l *Ledger) Burn(account model.Address, amount model.Amount) error {
	if err := checkAmount("burn", amount); err != nil {
		return err
	}
	if err := checkAddresses("burn", account); err != nil {
		return err
	}
	if err := l.authorize("burn", isGovernance); err != nil {
		return err
	}

	acc, err := l.Account(account)
	if err != nil {
		return err
	}
	if err := l.debit(&acc, amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	supply.Total -= amount
	supply.Circulating -= amount

	if err := l.saveAccount(acc); err != nil {
		return err
	}
	if err := l.saveSupply(supply); err != nil {
		return err
	}
	l.rec.Record(events.TypeBurn, map[string]string{
		"from":   account,
		"amount": formatAmount(amount),
	})
	return nil
}

func (l *Ledger) payFromTreasury(op, eventType string, recipient model.Address, amount model.Amount) error {
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	if supply.Treasury < amount {
		return fmt.Errorf("%s: treasury: %w", op, model.ErrInsufficientBalance)
	}
	acc, err := l.Account(recipient)
	if err != nil {
		return err
	}
	if err := l.credit(&acc, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	supply.Treasury -= amount
	supply.Circulating += amount

	if err := l.saveAccount(acc); err != nil {
		return err
	}
	if err := l.saveSupply(supply); err != nil {
		return err
	}
	l.rec.Record(eventType, map[string]string{
		"from":   events.Treasury,
		"to":     recipient,
		"amount": formatAmount(amount),
	})
	return nil
}

// DistributeReward pays amount from the treasury to recipient. Allowed for governance
// and the rewards module.
func (l *Ledger) DistributeReward(recipient model.Address, amount model.Amount) error {
	if err := checkAmount("distribute reward", amount); err != nil {
		return err
	}
	if err := checkAddresses("distribute reward", recipient); err != nil {
		return err
	}
	if err := l.authorize("distribute reward", isRewardPayer); err != nil {
		return err
	}
	return l.payFromTreasury("distribute reward", events.TypeTransfer, recipient, amount)
}

// TreasuryWithdraw pays amount from the treasury to recipient. Governance only.
func (l *Ledger) TreasuryWithdraw(recipient model.Address, amount model.Amount) error {
	if err := checkAmount("treasury withdraw", amount); err != nil {
		return err
	}
	if err := checkAddresses("treasury withdraw", recipient); err != nil {
		return err
	}
	if err := l.authorize("treasury withdraw", isGovernance); err != nil {
		return err
	}
	return l.payFromTreasury("treasury withdraw", events.TypeTreasuryWithdraw, recipient, amount)
}

// TreasuryDeposit moves amount from the account of from into the treasury. Governance only.
func (l *Ledger) TreasuryDeposit(from model.Address, amount model.Amount) error {
	if err := checkAmount("treasury deposit", amount); err != nil {
		return err
	}
	if err := checkAddresses("treasury deposit", from); err != nil {
		return err
	}
	if err := l.authorize("treasury deposit", isGovernance); err != nil {
		return err
	}

	acc, err := l.Account(from)
	if err != nil {
		return err
	}
	if err := l.debit(&acc, amount); err != nil {
		return fmt.Errorf("treasury deposit: %w", err)
	}
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	treasury, ok := model.AddAmounts(supply.Treasury, amount)
	if !ok {
		return fmt.Errorf("treasury deposit: %w", model.ErrInvalidAmount)
	}
	supply.Treasury = treasury
	supply.Circulating -= amount

	if err := l.saveAccount(acc); err != nil {
		return err
	}
	if err := l.saveSupply(supply); err != nil {
		return err
	}
	l.rec.Record(events.TypeTreasuryDeposit, map[string]string{
		"from":   from,
		"to":     events.Treasury,
		"amount": formatAmount(amount),
	})
	return nil
}

// ForEachAccount calls fn for every account, in state key order.
func (l *Ledger) ForEachAccount(fn func(model.Account) error) error {
	return l.tx.Scan(state.TablePrefix(accountsTable), func(_ string, raw []byte) error {
		var acc model.Account
		if err := state.Decode(raw, &acc); err != nil {
			return err
		}
		return fn(acc)
	})
}

// VerifyIntegrity recomputes the sum of all balances and checks it against the tracked supply.
func (l *Ledger) VerifyIntegrity() error {
	supply, err := l.Supply()
	if err != nil {
		return err
	}

	var sum model.Amount
	err = l.ForEachAccount(func(acc model.Account) error {
		var ok bool
		if sum, ok = model.AddAmounts(sum, acc.Balance); !ok {
			return fmt.Errorf("verify integrity: balance overflow: %w", model.ErrInvariantViolation)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sum != supply.Circulating {
		return fmt.Errorf("verify integrity: balances %d, circulating %d: %w", sum, supply.Circulating, model.ErrInvariantViolation)
	}
	if !supply.Balanced() {
		return fmt.Errorf("verify integrity: circulating %d + treasury %d != total %d: %w",
			supply.Circulating, supply.Treasury, supply.Total, model.ErrInvariantViolation)
	}
	return nil
}

// Genesis sets the initial supply, treasury and allocations. It is only valid on empty state.
func (l *Ledger) Genesis(treasury model.Amount, allocations map[model.Address]model.Amount) error {
	supply, err := l.Supply()
	if err != nil {
		return err
	}
	if supply.Total != 0 {
		return fmt.Errorf("genesis: %w", model.ErrAlreadyInitialized)
	}

	supply.Treasury = treasury
	for addr, amount := range allocations {
		if err := checkAddresses("genesis", addr); err != nil {
			return err
		}
		acc, err := l.Account(addr)
		if err != nil {
			return err
		}
		if err := l.credit(&acc, amount); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := l.saveAccount(acc); err != nil {
			return err
		}
		var ok bool
		if supply.Circulating, ok = model.AddAmounts(supply.Circulating, amount); !ok {
			return fmt.Errorf("genesis: %w", model.ErrInvalidAmount)
		}
	}
	total, ok := model.AddAmounts(supply.Circulating, supply.Treasury)
	if !ok {
		return fmt.Errorf("genesis: %w", model.ErrInvalidAmount)
	}
	supply.Total = total
	return l.saveSupply(supply)
}
