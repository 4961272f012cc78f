package dmc

import (
	"math/big"

	"dmcchain/core/types"
)

// OrderState tracks an order's lifecycle. Only Waiting is reachable through
// this engine; later transitions belong to the delivery subsystem.
type OrderState uint8

const (
	OrderStateWaiting OrderState = iota
	OrderStateDelivering
	OrderStateSettled
	OrderStateCancelled
)

// ChallengeState tracks a delivery-proof record. Challenges leave the engine
// in Prepare state.
type ChallengeState uint8

const (
	ChallengePrepare ChallengeState = iota
	ChallengeConsistent
	ChallengeRequest
	ChallengeAnswer
)

// Bill is a standing offer to sell service capacity at a fixed price.
// Unmatched only decreases through order matching, liquidation or
// cancellation; Matched only increases through order matching.
type Bill struct {
	ID              uint64        `json:"id"`
	Owner           types.Address `json:"owner"`
	Unmatched       *big.Int      `json:"unmatched"`
	Matched         *big.Int      `json:"matched"`
	Price           uint64        `json:"price"` // Q32.32 fixed point
	CreatedAt       int64         `json:"createdAt"`
	UpdatedAt       int64         `json:"updatedAt"`
	ExpireOn        int64         `json:"expireOn"`
	DepositRatioBps uint64        `json:"depositRatioBps"`
}

// Order is a buyer's matched reservation against a bill. Identity fields are
// immutable; settlement fields mutate during delivery.
type Order struct {
	ID               uint64        `json:"id"`
	User             types.Address `json:"user"`
	Miner            types.Address `json:"miner"`
	BillID           uint64        `json:"billId"`
	UserPledge       *big.Int      `json:"userPledge"`
	MinerLockPST     *big.Int      `json:"minerLockPST"`
	MinerLockDMC     *big.Int      `json:"minerLockDMC"`
	SettlementPledge *big.Int      `json:"settlementPledge"`
	LockPledge       *big.Int      `json:"lockPledge"`
	Price            *big.Int      `json:"price"` // payment locked at order time
	State            OrderState    `json:"state"`
	DeliverStart     int64         `json:"deliverStart"`
	LatestSettlement int64         `json:"latestSettlement"`
	Deposit          *big.Int      `json:"deposit"`
	DepositValid     int64         `json:"depositValid"`
	CancelDate       int64         `json:"cancelDate"`
}

// Challenge is the delivery-proof record paired 1:1 with an order.
type Challenge struct {
	OrderID           uint64         `json:"orderId"`
	PreMerkleRoot     [32]byte       `json:"preMerkleRoot"`
	PreDataBlockCount uint64         `json:"preDataBlockCount"`
	MerkleSubmitter   types.Address  `json:"merkleSubmitter"`
	ChallengeTimes    uint32         `json:"challengeTimes"`
	State             ChallengeState `json:"state"`
	UserLock          *big.Int       `json:"userLock"`
	MinerPay          *big.Int       `json:"minerPay"`
}

// Maker is a collateral-backed seller operating a weighted stake pool.
// CurrentRate is valued(TotalStaked)/minted, or the infinity sentinel while
// nothing is minted. Weights follow the original double-precision semantics.
type Maker struct {
	Miner              types.Address `json:"miner"`
	CurrentRate        float64       `json:"currentRate"`
	MinerRate          float64       `json:"minerRate"`
	TotalWeight        float64       `json:"totalWeight"`
	TotalStaked        *big.Int      `json:"totalStaked"`
	BenchmarkStakeRate uint64        `json:"benchmarkStakeRate"` // percent encoded
	RateUpdatedAt      int64         `json:"rateUpdatedAt"`
}

// PoolShare is one depositor's proportional claim on a maker pool. The sum of
// all shares for a maker equals that maker's TotalWeight.
type PoolShare struct {
	Maker  types.Address `json:"maker"`
	Owner  types.Address `json:"owner"`
	Weight float64       `json:"weight"`
}

// MintedStats tracks the total service-capacity tokens minted by one maker.
type MintedStats struct {
	Miner  types.Address `json:"miner"`
	Amount *big.Int      `json:"amount"`
}
