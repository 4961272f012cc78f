package dmc

import (
	"math/big"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/params"
)

// Increase stakes DMC collateral into a maker pool. A missing pool may only
// be bootstrapped by the maker itself; later deposits receive a proportional
// weight that must clear the anti-dust minimum share. The maker's own share
// fraction must stay at or above its declared miner rate floor.
func (e *Engine) Increase(auth AuthContext, owner types.Address, amount *big.Int, miner types.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}

	if err := e.debitDMC(owner, amount); err != nil {
		return err
	}

	maker, ok := e.state.GetMaker(miner)
	if !ok {
		if owner != miner {
			return errMakerNotFound
		}
		e.state.PutMaker(&Maker{
			Miner:              miner,
			CurrentRate:        e.currentRate(amount, miner),
			MinerRate:          1,
			TotalWeight:        initialPoolWeight,
			TotalStaked:        new(big.Int).Set(amount),
			BenchmarkStakeRate: e.getConfig(params.KeyBenchmarkRate),
		})
		e.state.PutPoolShare(&PoolShare{Maker: miner, Owner: owner, Weight: initialPoolWeight})
		e.emit(events.MakerStakeChanged{Kind: events.StakeChangeIncrease, Sender: owner, Miner: miner, Amount: new(big.Int).Set(amount)})
		return nil
	}

	newTotal := new(big.Int).Add(maker.TotalStaked, amount)
	newWeight := bigToFloat(amount) / bigToFloat(maker.TotalStaked) * maker.TotalWeight
	totalWeight := maker.TotalWeight + newWeight
	if newWeight <= 0 {
		return errInvalidWeight
	}
	if newWeight/totalWeight <= 0.0001 {
		return errIncreaseTooLow
	}

	maker.TotalWeight = totalWeight
	maker.TotalStaked = newTotal
	maker.CurrentRate = e.currentRate(newTotal, miner)
	e.state.PutMaker(maker)

	e.emit(events.MakerStakeChanged{Kind: events.StakeChangeIncrease, Sender: owner, Miner: miner, Amount: new(big.Int).Set(amount)})

	if share, exists := e.state.GetPoolShare(miner, owner); exists {
		share.Weight += newWeight
		e.state.PutPoolShare(share)
	} else {
		e.state.PutPoolShare(&PoolShare{Maker: miner, Owner: owner, Weight: newWeight})
	}

	minerShare, exists := e.state.GetPoolShare(miner, miner)
	if !exists {
		return errShareNotFound
	}
	if minerShare.Weight/totalWeight < maker.MinerRate {
		return errAboveMinerRate
	}
	return nil
}

// Redemption withdraws the given fraction of a depositor's pool weight. A
// full withdrawal that leaves exactly one other depositor hands that survivor
// the maker's entire remaining weight so no residue is orphaned by floating
// point drift. Proceeds mature through a three-day time lock.
func (e *Engine) Redemption(auth AuthContext, owner types.Address, rate float64, miner types.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return nil, err
	}
	if rate <= 0 || rate > 1 {
		return nil, errInvalidRate
	}
	maker, ok := e.state.GetMaker(miner)
	if !ok {
		return nil, errMakerNotFound
	}
	share, ok := e.state.GetPoolShare(miner, owner)
	if !ok {
		return nil, errShareNotFound
	}

	ownerWeight := share.Weight * rate
	redeRate := ownerWeight / maker.TotalWeight
	// Amounts returned round down.
	redeQuantity := mulFloatTrunc(maker.TotalStaked, redeRate)

	lastOne := false
	if rate == 1 {
		e.state.DeletePoolShare(miner, owner)
		remaining := e.sortedPoolShares(miner)
		if len(remaining) == 0 {
			redeQuantity = new(big.Int).Set(maker.TotalStaked)
		} else if len(remaining) == 1 {
			lastOne = true
			ownerWeight = remaining[0].Weight
		}
	} else {
		share.Weight -= ownerWeight
		e.state.PutPoolShare(share)
		if share.Weight <= 0 {
			return nil, errNegativeWeight
		}
	}

	totalWeight := maker.TotalWeight - ownerWeight
	totalStaked := new(big.Int).Sub(maker.TotalStaked, redeQuantity)
	benchmark := e.dmcRate(maker.BenchmarkStakeRate)
	newRate := e.currentRate(totalStaked, miner)

	if miner == owner {
		if newRate < benchmark {
			return nil, errBelowBenchmark
		}
		minerRate := rateInfinity
		if totalStaked.Sign() != 0 {
			minerShare, exists := e.state.GetPoolShare(miner, miner)
			if !exists {
				return nil, errSoleExitOnly
			}
			minerRate = minerShare.Weight / totalWeight
		}
		if minerRate < maker.MinerRate {
			return nil, errBelowMinerRate
		}
	}
	if redeQuantity.Sign() <= 0 {
		return nil, errDustAttack
	}

	now := e.now()
	maturesAt := now + redemptionLockSeconds
	e.creditLockedDMC(owner, redeQuantity, maturesAt)
	e.emit(events.StakeRedeemed{Owner: owner, Miner: miner, Amount: new(big.Int).Set(redeQuantity), MaturesAt: maturesAt})

	if totalStaked.Sign() == 0 {
		e.state.DeleteMaker(miner)
	} else {
		if totalStaked.Sign() < 0 {
			return nil, errNegativeStake
		}
		if totalWeight < 0 {
			return nil, errNegativeWeight
		}
		maker.TotalWeight = totalWeight
		if lastOne {
			maker.TotalWeight = ownerWeight
		}
		maker.TotalStaked = totalStaked
		maker.CurrentRate = newRate
		e.state.PutMaker(maker)
	}

	e.emit(events.MakerStakeChanged{Kind: events.StakeChangeRedemption, Sender: owner, Miner: miner, Amount: new(big.Int).Neg(redeQuantity)})

	if rate != 1 {
		if share.Weight/maker.TotalWeight <= 0.0001 {
			return nil, errRemainderTooLow
		}
	}
	return redeQuantity, nil
}

// Mint issues service-capacity tokens against the maker's staked collateral.
// Capacity is floor(valued(stake)/benchmark); the post-mint collateralization
// rate must stay at or above the benchmark.
func (e *Engine) Mint(auth AuthContext, owner types.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	maker, ok := e.state.GetMaker(owner)
	if !ok {
		return errMakerNotFound
	}

	benchmark := e.dmcRate(maker.BenchmarkStakeRate)
	capacity := divFloatFloor(maker.TotalStaked, benchmark)
	minted := e.state.MintedAmount(owner)
	if minted == nil {
		minted = big.NewInt(0)
	}
	added := new(big.Int).Add(minted, amount)
	if capacity.Cmp(added) < 0 {
		return errMintCapacity
	}

	e.state.SetMintedAmount(owner, added)
	e.creditPST(owner, amount)

	rate := e.currentRate(maker.TotalStaked, owner)
	if rate < benchmark {
		return errBelowBenchmark
	}
	maker.CurrentRate = rate
	e.state.PutMaker(maker)
	return nil
}

// SetMakerRate declares the maker's minimum self-retained share fraction. The
// maker cannot declare a floor above the fraction it currently holds.
func (e *Engine) SetMakerRate(auth AuthContext, owner types.Address, rate float64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return err
	}
	if rate < 0.2 || rate > 1 {
		return errInvalidRate
	}
	maker, ok := e.state.GetMaker(owner)
	if !ok {
		return errMakerNotFound
	}
	minerShare, exists := e.state.GetPoolShare(owner, owner)
	if !exists {
		return errShareNotFound
	}
	if minerShare.Weight/maker.TotalWeight < rate {
		return errRateBelowShare
	}
	maker.MinerRate = rate
	e.state.PutMaker(maker)
	return nil
}

// SetMakerBenchmarkRate adjusts the maker's own benchmark stake rate. Changes
// are cooldown-gated; after the first change the new value must stay within
// ten percent of the current one and never below the global default.
func (e *Engine) SetMakerBenchmarkRate(auth AuthContext, owner types.Address, newRate uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return err
	}
	maker, ok := e.state.GetMaker(owner)
	if !ok {
		return errMakerNotFound
	}
	if _, exists := e.state.GetPoolShare(owner, owner); !exists {
		return errShareNotFound
	}
	now := e.now()
	if now < maker.RateUpdatedAt+makerRateChangeCooldown {
		return errRateCooldown
	}
	floor := e.getConfig(params.KeyBenchmarkRate)
	if maker.RateUpdatedAt == 0 {
		if newRate < floor {
			return errBenchmarkDrift
		}
	} else {
		upper := float64(maker.BenchmarkStakeRate) * 1.1
		lower := float64(maker.BenchmarkStakeRate) * 0.9
		if float64(newRate) > upper || float64(newRate) < lower || newRate < floor {
			return errBenchmarkDrift
		}
	}
	maker.BenchmarkStakeRate = newRate
	maker.RateUpdatedAt = now
	e.state.PutMaker(maker)
	return nil
}
