package account_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/payments/account"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertBalances(t *testing.T, a *account.Account, available, held string, locked bool) {
	t.Helper()
	assert.True(t, a.Available.Equal(d(available)), "available: got %s, want %s", a.Available, available)
	assert.True(t, a.Held.Equal(d(held)), "held: got %s, want %s", a.Held, held)
	assert.Equal(t, locked, a.Locked, "locked")
}

func TestNew(t *testing.T) {
	a := account.New(7)
	assert.Equal(t, uint16(7), a.ClientID)
	assertBalances(t, a, "0", "0", false)
	assert.True(t, a.Total().IsZero())
}

func TestOperations(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(a *account.Account)
		op        func(a *account.Account) bool
		wantOK    bool
		available string
		held      string
		locked    bool
	}{
		{
			name:      "deposit",
			op:        func(a *account.Account) bool { return a.Deposit(d("10.5")) },
			wantOK:    true,
			available: "10.5", held: "0",
		},
		{
			name:      "deposit on locked account",
			setup:     func(a *account.Account) { a.Locked = true },
			op:        func(a *account.Account) bool { return a.Deposit(d("1")) },
			available: "0", held: "0", locked: true,
		},
		{
			name:      "withdraw",
			setup:     func(a *account.Account) { a.Deposit(d("10")) },
			op:        func(a *account.Account) bool { return a.Withdraw(d("4.25")) },
			wantOK:    true,
			available: "5.75", held: "0",
		},
		{
			name:      "withdraw exact balance",
			setup:     func(a *account.Account) { a.Deposit(d("10")) },
			op:        func(a *account.Account) bool { return a.Withdraw(d("10")) },
			wantOK:    true,
			available: "0", held: "0",
		},
		{
			name:      "withdraw insufficient",
			setup:     func(a *account.Account) { a.Deposit(d("10")) },
			op:        func(a *account.Account) bool { return a.Withdraw(d("10.0001")) },
			available: "10", held: "0",
		},
		{
			name: "withdraw on locked account",
			setup: func(a *account.Account) {
				a.Deposit(d("10"))
				a.Locked = true
			},
			op:        func(a *account.Account) bool { return a.Withdraw(d("1")) },
			available: "10", held: "0", locked: true,
		},
		{
			name:      "hold",
			setup:     func(a *account.Account) { a.Deposit(d("10")) },
			op:        func(a *account.Account) bool { return a.Hold(d("3")) },
			wantOK:    true,
			available: "7", held: "3",
		},
		{
			name:      "hold insufficient",
			setup:     func(a *account.Account) { a.Deposit(d("2")) },
			op:        func(a *account.Account) bool { return a.Hold(d("3")) },
			available: "2", held: "0",
		},
		{
			name: "hold on locked account",
			setup: func(a *account.Account) {
				a.Deposit(d("10"))
				a.Locked = true
			},
			op:        func(a *account.Account) bool { return a.Hold(d("4")) },
			wantOK:    true,
			available: "6", held: "4", locked: true,
		},
		{
			name: "release",
			setup: func(a *account.Account) {
				a.Deposit(d("10"))
				a.Hold(d("4"))
			},
			op:        func(a *account.Account) bool { return a.Release(d("4")) },
			wantOK:    true,
			available: "10", held: "0",
		},
		{
			name: "release insufficient",
			setup: func(a *account.Account) {
				a.Deposit(d("10"))
				a.Hold(d("4"))
			},
			op:        func(a *account.Account) bool { return a.Release(d("5")) },
			available: "6", held: "4",
		},
		{
			name: "chargeback",
			setup: func(a *account.Account) {
				a.Deposit(d("10"))
				a.Hold(d("4"))
			},
			op:        func(a *account.Account) bool { return a.Chargeback(d("4")) },
			wantOK:    true,
			available: "6", held: "0", locked: true,
		},
		{
			name:      "chargeback insufficient",
			setup:     func(a *account.Account) { a.Deposit(d("10")) },
			op:        func(a *account.Account) bool { return a.Chargeback(d("1")) },
			available: "10", held: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := account.New(1)
			if tt.setup != nil {
				tt.setup(a)
			}
			assert.Equal(t, tt.wantOK, tt.op(a))
			assertBalances(t, a, tt.available, tt.held, tt.locked)
		})
	}
}

func TestLockIsPermanent(t *testing.T) {
	a := account.New(1)
	require.True(t, a.Deposit(d("10")))
	require.True(t, a.Hold(d("10")))
	require.True(t, a.Chargeback(d("10")))

	assert.False(t, a.Deposit(d("5")))
	assert.False(t, a.Withdraw(d("0.0001")))
	assertBalances(t, a, "0", "0", true)
}

func TestSnapshotIsDetached(t *testing.T) {
	a := account.New(1)
	a.Deposit(d("10"))

	snap := a.Snapshot()
	a.Deposit(d("5"))

	assert.True(t, snap.Available.Equal(d("10")))
	assert.True(t, a.Available.Equal(d("15")))
}

func TestMarshalJSON(t *testing.T) {
	a := account.New(3)
	a.Deposit(d("1.5"))
	a.Hold(d("0.25"))

	raw, err := json.Marshal(a.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{"client":3,"available":"1.25","held":"0.25","total":"1.5","locked":false}`, string(raw))

	var back account.Account
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, uint16(3), back.ClientID)
	assert.True(t, back.Total().Equal(d("1.5")))
}
