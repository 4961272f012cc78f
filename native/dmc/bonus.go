package dmc

import (
	"math"
	"math/big"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/params"
)

// calbonus accrues the capacity incentive on a bill's unmatched amount since
// its last update, credits the reward into the owning maker's staked
// collateral, and stamps the bill with the capped accrual time it returns.
// The accrual window is capped at the bill interval after creation, so a bill
// that sat longer than one interval earns nothing past the cap and repeated
// calls after the cap are no-ops.
func (e *Engine) calbonus(owner types.Address, billID uint64) (int64, error) {
	bill, ok := e.state.GetBill(billID)
	if !ok || bill.Owner != owner {
		return 0, errBillNotFound
	}
	maker, ok := e.state.GetMaker(owner)
	if !ok {
		return 0, errMakerNotFound
	}

	now := e.now()
	maxT := bill.CreatedAt + int64(e.getConfig(params.KeyBillClaimsInterval))
	cappedNow := now
	if cappedNow > maxT {
		cappedNow = maxT
	}
	if bill.UpdatedAt > maxT {
		return cappedNow, nil
	}

	duration := cappedNow - bill.UpdatedAt
	if duration < 0 {
		return 0, errNegativeDuration
	}

	// Per-second per-unit reward in rsi base units, floored once so every bill
	// accrues at the same integral rate. The divisor is the built-in interval:
	// only the accrual cap above tracks the configured value, the reward rate
	// itself stays fixed.
	benchmark := float64(e.getConfig(params.KeyBenchmarkRate)) / 100
	perUnit := math.Floor(incentiveRate * benchmark / float64(params.DefaultBillClaimsInterval) * rsiUnit)

	quantity := new(big.Int).Mul(big.NewInt(int64(perUnit)), big.NewInt(duration))
	quantity.Mul(quantity, bill.Unmatched)

	board := e.state.PriceBoard()
	avg := board.Average
	if board.Count == 0 {
		avg = float64(e.getConfig(params.KeyInitialPrice))
	}
	dmcQuantity := divFloatFloor(quantity, avg*rsiUnit)

	if dmcQuantity.Sign() > 0 {
		maker.TotalStaked = new(big.Int).Add(maker.TotalStaked, dmcQuantity)
		e.state.PutMaker(maker)
		e.emit(events.IncentivePaid{Miner: owner, BillID: billID, Amount: dmcQuantity})
	}

	bill.UpdatedAt = cappedNow
	e.state.PutBill(bill)
	return cappedNow, nil
}
