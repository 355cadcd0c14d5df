// Package account defines the per-client balance state and the fund
// movement operations the ledger applies to it.
package account

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Account is the balance state of a single client.
//
// Available and Held never go negative. Locked is set by a chargeback and
// never cleared; once set, Deposit and Withdraw refuse to move funds.
// Hold, Release and Chargeback do not consult Locked, so a dispute that was
// already open when the account locked can still be settled.
type Account struct {
	ClientID  uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// New returns an empty, unlocked account for the client.
func New(clientID uint16) *Account {
	return &Account{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total returns Available + Held.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Snapshot returns a copy that is safe to hand out of a critical section.
func (a *Account) Snapshot() Account {
	return *a
}

// Deposit credits available funds. It fails on a locked account.
func (a *Account) Deposit(amount decimal.Decimal) bool {
	if a.Locked {
		return false
	}
	a.Available = a.Available.Add(amount)
	return true
}

// Withdraw debits available funds. It fails on a locked account or when
// available funds are insufficient.
func (a *Account) Withdraw(amount decimal.Decimal) bool {
	if a.Locked {
		return false
	}
	if a.Available.LessThan(amount) {
		return false
	}
	a.Available = a.Available.Sub(amount)
	return true
}

// Hold moves funds from available to held.
func (a *Account) Hold(amount decimal.Decimal) bool {
	if a.Available.LessThan(amount) {
		return false
	}
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	return true
}

// Release moves funds from held back to available.
func (a *Account) Release(amount decimal.Decimal) bool {
	if a.Held.LessThan(amount) {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
	return true
}

// Chargeback removes held funds and locks the account.
func (a *Account) Chargeback(amount decimal.Decimal) bool {
	if a.Held.LessThan(amount) {
		return false
	}
	a.Held = a.Held.Sub(amount)
	a.Locked = true
	return true
}

// accountJSON is the output record: client, available, held, total, locked.
type accountJSON struct {
	Client    uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// MarshalJSON renders the account as an output record including the derived total.
func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		Client:    a.ClientID,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	})
}

// UnmarshalJSON reads an output record back. The total field is ignored.
func (a *Account) UnmarshalJSON(data []byte) error {
	var v accountJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	a.ClientID = v.Client
	a.Available = v.Available
	a.Held = v.Held
	a.Locked = v.Locked
	return nil
}
