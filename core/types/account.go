package types

import "math/big"

// LockedBalance is a DMC amount held until its maturity timestamp. Redemption
// proceeds from stake pools are paid out through locked balances.
type LockedBalance struct {
	Amount    *big.Int `json:"amount"`
	MaturesAt int64    `json:"maturesAt"`
}

// Account holds the free balances for both engine assets plus any time-locked
// DMC entries. BalanceDMC is the collateral token; BalancePST is the service
// capacity token minted against maker stake.
type Account struct {
	BalanceDMC *big.Int        `json:"balanceDMC"`
	BalancePST *big.Int        `json:"balancePST"`
	LockedDMC  []LockedBalance `json:"lockedDMC,omitempty"`
}

// EnsureAccount normalises nil balance fields so callers can mutate without
// nil checks.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		acc = &Account{}
	}
	if acc.BalanceDMC == nil {
		acc.BalanceDMC = big.NewInt(0)
	}
	if acc.BalancePST == nil {
		acc.BalancePST = big.NewInt(0)
	}
	return acc
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{
		BalanceDMC: cloneBig(a.BalanceDMC),
		BalancePST: cloneBig(a.BalancePST),
	}
	if len(a.LockedDMC) > 0 {
		clone.LockedDMC = make([]LockedBalance, len(a.LockedDMC))
		for i, lb := range a.LockedDMC {
			clone.LockedDMC[i] = LockedBalance{Amount: cloneBig(lb.Amount), MaturesAt: lb.MaturesAt}
		}
	}
	return clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
