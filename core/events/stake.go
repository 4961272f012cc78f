package events

import (
	"math/big"
	"strconv"

	"dmcchain/core/types"
)

const (
	// TypeStakeIncreased is emitted when collateral is added to a maker pool.
	TypeStakeIncreased = "dmc.maker.increased"
	// TypeStakeRedeemed is emitted when a depositor withdraws pool weight.
	TypeStakeRedeemed = "dmc.maker.redeemed"
	// TypeMakerLiquidated is emitted when penalty collateral is extracted from
	// a maker pool during liquidation.
	TypeMakerLiquidated = "dmc.maker.liquidated"
	// TypeIncentivePaid is emitted when bonus accrual credits a maker pool.
	TypeIncentivePaid = "dmc.incentive.paid"
	// TypeLiquidationReceipt summarises one applied liquidation entry.
	TypeLiquidationReceipt = "dmc.liquidation.receipt"

	// StakeChangeIncrease identifies a stake increase receipt.
	StakeChangeIncrease = "increase"
	// StakeChangeRedemption identifies a redemption receipt.
	StakeChangeRedemption = "redemption"
	// StakeChangeLiquidation identifies a liquidation receipt.
	StakeChangeLiquidation = "liquidation"
)

// MakerStakeChanged is the generic stake movement receipt. Amount is negative
// for redemptions and liquidations, mirroring the ledger convention.
type MakerStakeChanged struct {
	Kind   string
	Sender types.Address
	Miner  types.Address
	Amount *big.Int
}

func (e MakerStakeChanged) EventType() string {
	switch e.Kind {
	case StakeChangeRedemption:
		return TypeStakeRedeemed
	case StakeChangeLiquidation:
		return TypeMakerLiquidated
	default:
		return TypeStakeIncreased
	}
}

// Event converts the structured payload into a broadcastable event.
func (e MakerStakeChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"kind":   e.Kind,
		"sender": e.Sender.String(),
		"miner":  e.Miner.String(),
		"amount": formatAmount(e.Amount),
	}}
}

// StakeRedeemed records a redemption payout scheduled through a time-locked
// balance.
type StakeRedeemed struct {
	Owner     types.Address
	Miner     types.Address
	Amount    *big.Int
	MaturesAt int64
}

func (StakeRedeemed) EventType() string { return TypeStakeRedeemed }

func (e StakeRedeemed) Event() *types.Event {
	return &types.Event{Type: TypeStakeRedeemed, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"miner":     e.Miner.String(),
		"amount":    formatAmount(e.Amount),
		"maturesAt": strconv.FormatInt(e.MaturesAt, 10),
	}}
}

// IncentivePaid records a bonus accrual credit into a maker pool.
type IncentivePaid struct {
	Miner  types.Address
	BillID uint64
	Amount *big.Int
}

func (IncentivePaid) EventType() string { return TypeIncentivePaid }

func (e IncentivePaid) Event() *types.Event {
	return &types.Event{Type: TypeIncentivePaid, Attributes: map[string]string{
		"miner":  e.Miner.String(),
		"billId": strconv.FormatUint(e.BillID, 10),
		"amount": formatAmount(e.Amount),
	}}
}

// LiquidationReceipt summarises one maker processed in the apply phase of a
// liquidation sweep.
type LiquidationReceipt struct {
	Miner      types.Address
	BurnedPST  *big.Int
	PenaltyDMC *big.Int
}

func (LiquidationReceipt) EventType() string { return TypeLiquidationReceipt }

func (e LiquidationReceipt) Event() *types.Event {
	return &types.Event{Type: TypeLiquidationReceipt, Attributes: map[string]string{
		"miner":      e.Miner.String(),
		"burnedPST":  formatAmount(e.BurnedPST),
		"penaltyDMC": formatAmount(e.PenaltyDMC),
	}}
}
