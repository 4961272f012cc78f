package dmc

import "math/big"

// Clone returns a deep copy of the bill.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Unmatched = cloneBig(b.Unmatched)
	clone.Matched = cloneBig(b.Matched)
	return &clone
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.UserPledge = cloneBig(o.UserPledge)
	clone.MinerLockPST = cloneBig(o.MinerLockPST)
	clone.MinerLockDMC = cloneBig(o.MinerLockDMC)
	clone.SettlementPledge = cloneBig(o.SettlementPledge)
	clone.LockPledge = cloneBig(o.LockPledge)
	clone.Price = cloneBig(o.Price)
	clone.Deposit = cloneBig(o.Deposit)
	return &clone
}

// Clone returns a deep copy of the challenge.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	clone := *c
	clone.UserLock = cloneBig(c.UserLock)
	clone.MinerPay = cloneBig(c.MinerPay)
	return &clone
}

// Clone returns a deep copy of the maker.
func (m *Maker) Clone() *Maker {
	if m == nil {
		return nil
	}
	clone := *m
	clone.TotalStaked = cloneBig(m.TotalStaked)
	return &clone
}

// Clone returns a copy of the pool share.
func (s *PoolShare) Clone() *PoolShare {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
