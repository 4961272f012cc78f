package events

import (
	"math/big"
	"strconv"

	"dmcchain/core/types"
)

const (
	// TypeBillCreated is emitted when a seller lists service capacity.
	TypeBillCreated = "dmc.bill.created"
	// TypeBillRemoved is emitted when a bill is cancelled and its unmatched
	// capacity refunded.
	TypeBillRemoved = "dmc.bill.removed"
	// TypeBillLiquidated is emitted for every bill drained during a
	// liquidation sweep.
	TypeBillLiquidated = "dmc.bill.liquidated"
	// TypeOrderCreated is emitted when a buyer reservation is matched.
	TypeOrderCreated = "dmc.order.created"
	// TypeOrderPledgeReceipt records the escrow breakdown of a funded order.
	TypeOrderPledgeReceipt = "dmc.order.pledge"
	// TypeChallengeCreated is emitted when the delivery-proof record paired
	// with a new order is handed to the verification subsystem.
	TypeChallengeCreated = "dmc.challenge.created"
)

// BillCreated captures a freshly listed bill.
type BillCreated struct {
	Owner  types.Address
	BillID uint64
	Amount *big.Int
}

func (BillCreated) EventType() string { return TypeBillCreated }

// Event converts the structured payload into a broadcastable event.
func (e BillCreated) Event() *types.Event {
	return &types.Event{Type: TypeBillCreated, Attributes: map[string]string{
		"owner":  e.Owner.String(),
		"billId": strconv.FormatUint(e.BillID, 10),
		"amount": formatAmount(e.Amount),
	}}
}

// BillRemoved captures a cancelled bill and the refunded unmatched amount.
type BillRemoved struct {
	Owner  types.Address
	BillID uint64
	Amount *big.Int
}

func (BillRemoved) EventType() string { return TypeBillRemoved }

func (e BillRemoved) Event() *types.Event {
	return &types.Event{Type: TypeBillRemoved, Attributes: map[string]string{
		"owner":  e.Owner.String(),
		"billId": strconv.FormatUint(e.BillID, 10),
		"amount": formatAmount(e.Amount),
	}}
}

// BillLiquidated records the unmatched capacity removed from one bill while
// draining an under-collateralised maker.
type BillLiquidated struct {
	Miner  types.Address
	BillID uint64
	Amount *big.Int
}

func (BillLiquidated) EventType() string { return TypeBillLiquidated }

func (e BillLiquidated) Event() *types.Event {
	return &types.Event{Type: TypeBillLiquidated, Attributes: map[string]string{
		"miner":  e.Miner.String(),
		"billId": strconv.FormatUint(e.BillID, 10),
		"amount": formatAmount(e.Amount),
	}}
}

// OrderCreated captures the matched reservation.
type OrderCreated struct {
	OrderID      uint64
	User         types.Address
	Miner        types.Address
	BillID       uint64
	LockedPST    *big.Int
	LockedDMC    *big.Int
	Payment      *big.Int
	Deposit      *big.Int
	DepositValid int64
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

func (e OrderCreated) Event() *types.Event {
	return &types.Event{Type: TypeOrderCreated, Attributes: map[string]string{
		"orderId":      strconv.FormatUint(e.OrderID, 10),
		"user":         e.User.String(),
		"miner":        e.Miner.String(),
		"billId":       strconv.FormatUint(e.BillID, 10),
		"lockedPST":    formatAmount(e.LockedPST),
		"lockedDMC":    formatAmount(e.LockedDMC),
		"payment":      formatAmount(e.Payment),
		"deposit":      formatAmount(e.Deposit),
		"depositValid": strconv.FormatInt(e.DepositValid, 10),
	}}
}

// OrderPledgeReceipt records how a buyer's pledge was split at order time.
type OrderPledgeReceipt struct {
	OrderID   uint64
	Pledge    *big.Int
	Timestamp int64
}

func (OrderPledgeReceipt) EventType() string { return TypeOrderPledgeReceipt }

func (e OrderPledgeReceipt) Event() *types.Event {
	return &types.Event{Type: TypeOrderPledgeReceipt, Attributes: map[string]string{
		"orderId":   strconv.FormatUint(e.OrderID, 10),
		"pledge":    formatAmount(e.Pledge),
		"timestamp": strconv.FormatInt(e.Timestamp, 10),
	}}
}

// ChallengeCreated announces the delivery-proof record paired with an order.
type ChallengeCreated struct {
	OrderID uint64
}

func (ChallengeCreated) EventType() string { return TypeChallengeCreated }

func (e ChallengeCreated) Event() *types.Event {
	return &types.Event{Type: TypeChallengeCreated, Attributes: map[string]string{
		"orderId": strconv.FormatUint(e.OrderID, 10),
	}}
}
