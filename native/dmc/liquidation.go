package dmc

import (
	"math/big"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/params"
)

// liquidationEntry is one maker queued during the scan phase.
type liquidationEntry struct {
	miner      types.Address
	burnedPST  *big.Int
	penaltyDMC *big.Int
}

// Liquidation sweeps under-collateralised makers. The sweep runs in two
// phases: a scan that walks makers in ascending collateralization order,
// burning unmatched bill capacity to cover each maker's excess minted
// exposure and computing the collateral penalty, then an apply phase that
// rewrites pool totals and routes penalties to the recovery account. At most
// liquidationBatchSize makers are processed per call; callers repeat the
// sweep until it returns zero.
func (e *Engine) Liquidation(auth AuthContext, caller types.Address) (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if caller != e.admin {
		return 0, errUnauthorized
	}
	if err := e.requireAuth(auth, caller); err != nil {
		return 0, err
	}

	var queue []liquidationEntry
	for _, maker := range e.state.MakersByRate() {
		if len(queue) >= liquidationBatchSize {
			break
		}
		benchmark := e.dmcRate(maker.BenchmarkStakeRate)
		if maker.CurrentRate >= benchmark {
			break
		}

		miner := maker.Miner
		shortfall := 1 - maker.CurrentRate/benchmark
		minted := e.state.MintedAmount(miner)
		if minted == nil {
			minted = big.NewInt(0)
		}
		// Excess exposure rounds up so the maker never stays below benchmark
		// by one base unit.
		target := mulFloatCeil(minted, shortfall)

		remaining := new(big.Int).Set(target)
		acc := e.account(miner)
		if acc.BalancePST.Sign() > 0 {
			take := new(big.Int).Set(acc.BalancePST)
			if take.Cmp(remaining) > 0 {
				take.Set(remaining)
			}
			acc.BalancePST = new(big.Int).Sub(acc.BalancePST, take)
			e.state.PutAccount(miner, acc)
			remaining.Sub(remaining, take)
		}

		for _, bill := range e.state.BillsByOwner(miner) {
			if remaining.Sign() <= 0 {
				break
			}
			if _, err := e.calbonus(miner, bill.ID); err != nil {
				return 0, err
			}
			bill, _ = e.state.GetBill(bill.ID)
			take := new(big.Int).Set(bill.Unmatched)
			if take.Cmp(remaining) > 0 {
				take.Set(remaining)
			}
			bill.Unmatched = new(big.Int).Sub(bill.Unmatched, take)
			remaining.Sub(remaining, take)
			if bill.Unmatched.Sign() == 0 {
				e.state.DeleteBill(bill.ID)
			} else {
				e.state.PutBill(bill)
			}
			e.emit(events.BillLiquidated{Miner: miner, BillID: bill.ID, Amount: take})
		}

		burned := new(big.Int).Sub(target, remaining)

		// calbonus may have grown the pool; penalties come off the updated
		// total.
		maker, _ = e.state.GetMaker(miner)
		penaltyRate := shortfall * float64(e.getConfig(params.KeyPenaltyRate)) / 100
		penalty := mulFloatCeil(maker.TotalStaked, penaltyRate)

		if burned.Sign() > 0 && penalty.Sign() > 0 {
			queue = append(queue, liquidationEntry{miner: miner, burnedPST: burned, penaltyDMC: penalty})
		}
	}

	for _, entry := range queue {
		minted := e.state.MintedAmount(entry.miner)
		if minted == nil {
			minted = big.NewInt(0)
		}
		e.state.SetMintedAmount(entry.miner, new(big.Int).Sub(minted, entry.burnedPST))

		maker, ok := e.state.GetMaker(entry.miner)
		if !ok {
			return 0, errMakerNotFound
		}
		maker.TotalStaked = new(big.Int).Sub(maker.TotalStaked, entry.penaltyDMC)
		if maker.TotalStaked.Sign() < 0 {
			return 0, errNegativeStake
		}
		maker.CurrentRate = e.currentRate(maker.TotalStaked, entry.miner)
		e.state.PutMaker(maker)

		e.creditDMC(e.recovery, entry.penaltyDMC)
		e.emit(events.MakerStakeChanged{
			Kind:   events.StakeChangeLiquidation,
			Sender: entry.miner,
			Miner:  entry.miner,
			Amount: new(big.Int).Neg(entry.penaltyDMC),
		})
		e.emit(events.LiquidationReceipt{
			Miner:      entry.miner,
			BurnedPST:  new(big.Int).Set(entry.burnedPST),
			PenaltyDMC: new(big.Int).Set(entry.penaltyDMC),
		})
	}
	return len(queue), nil
}
