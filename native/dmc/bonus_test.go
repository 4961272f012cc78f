package dmc

import (
	"math/big"
	"testing"

	"dmcchain/core/events"
	"dmcchain/native/params"
)

// Accrual rate with default parameters: floor(0.05 x 2.0 / 259200 x 1e8) = 38
// reward base units per second per capacity unit, valued at the initial price
// of 25 while the trade window is empty.

func seedBill(state *mockState, owner [20]byte, unmatched int64, createdAt int64) *Bill {
	bill := &Bill{
		ID:        77,
		Owner:     owner,
		Unmatched: big.NewInt(unmatched),
		Matched:   big.NewInt(0),
		Price:     minPriceFixed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		ExpireOn:  createdAt + 604_800,
	}
	state.PutBill(bill)
	return bill
}

func TestCalbonusAccruesOnUnmatched(t *testing.T) {
	engine, state, queue := newTestEngine(t)
	miner := addr(0x01)
	state.PutMaker(&Maker{Miner: miner, TotalStaked: big.NewInt(10_000), TotalWeight: initialPoolWeight})
	seedBill(state, miner, 1_000, testBaseTime-86_400)

	cappedNow, err := engine.calbonus(miner, 77)
	if err != nil {
		t.Fatalf("calbonus: %v", err)
	}
	if cappedNow != testBaseTime {
		t.Fatalf("capped now = %d, want %d", cappedNow, testBaseTime)
	}

	// 38 x 86400s x 1000 units = 3283200000 reward base units, valued at
	// 25 x 1e8 per DMC: floor gives 1.
	maker, _ := state.GetMaker(miner)
	if maker.TotalStaked.Int64() != 10_001 {
		t.Fatalf("total staked = %s, want 10001", maker.TotalStaked)
	}
	bill, _ := state.GetBill(77)
	if bill.UpdatedAt != testBaseTime {
		t.Fatalf("bill updated at = %d, want %d", bill.UpdatedAt, testBaseTime)
	}
	if seen := drainedTypes(queue); !hasEventType(seen, events.TypeIncentivePaid) {
		t.Fatalf("missing %s event, got %v", events.TypeIncentivePaid, seen)
	}
}

func TestCalbonusIdempotentAtSameInstant(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	miner := addr(0x01)
	state.PutMaker(&Maker{Miner: miner, TotalStaked: big.NewInt(10_000), TotalWeight: initialPoolWeight})
	seedBill(state, miner, 1_000, testBaseTime-86_400)

	if _, err := engine.calbonus(miner, 77); err != nil {
		t.Fatalf("first calbonus: %v", err)
	}
	maker, _ := state.GetMaker(miner)
	stakedAfterFirst := new(big.Int).Set(maker.TotalStaked)

	if _, err := engine.calbonus(miner, 77); err != nil {
		t.Fatalf("second calbonus: %v", err)
	}
	maker, _ = state.GetMaker(miner)
	if maker.TotalStaked.Cmp(stakedAfterFirst) != 0 {
		t.Fatalf("repeated accrual at same instant changed stake: %s -> %s", stakedAfterFirst, maker.TotalStaked)
	}
}

func TestCalbonusCapsAccrualWindow(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	miner := addr(0x01)
	state.PutMaker(&Maker{Miner: miner, TotalStaked: big.NewInt(10_000), TotalWeight: initialPoolWeight})
	// Created two bill intervals ago; accrual stops after one interval.
	created := testBaseTime - 2*259_200
	seedBill(state, miner, 1_000, created)

	cappedNow, err := engine.calbonus(miner, 77)
	if err != nil {
		t.Fatalf("calbonus: %v", err)
	}
	if want := created + 259_200; cappedNow != want {
		t.Fatalf("capped now = %d, want %d", cappedNow, want)
	}
	bill, _ := state.GetBill(77)
	if bill.UpdatedAt != cappedNow {
		t.Fatalf("bill updated at = %d, want %d", bill.UpdatedAt, cappedNow)
	}

	// A later call past the cap accrues nothing further.
	maker, _ := state.GetMaker(miner)
	staked := new(big.Int).Set(maker.TotalStaked)
	if _, err := engine.calbonus(miner, 77); err != nil {
		t.Fatalf("post-cap calbonus: %v", err)
	}
	maker, _ = state.GetMaker(miner)
	if maker.TotalStaked.Cmp(staked) != 0 {
		t.Fatalf("post-cap accrual changed stake: %s -> %s", staked, maker.TotalStaked)
	}
}

func TestCalbonusRateIndependentOfConfiguredWindow(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	miner := addr(0x01)
	state.PutMaker(&Maker{Miner: miner, TotalStaked: big.NewInt(10_000), TotalWeight: initialPoolWeight})
	seedBill(state, miner, 1_000, testBaseTime-86_400)
	// Doubling the accrual window only stretches the cap; the per-second
	// reward rate stays pinned to the built-in interval.
	state.ParamSet(params.KeyBillClaimsInterval, 2*259_200)

	if _, err := engine.calbonus(miner, 77); err != nil {
		t.Fatalf("calbonus: %v", err)
	}
	maker, _ := state.GetMaker(miner)
	if maker.TotalStaked.Int64() != 10_001 {
		t.Fatalf("total staked = %s, want 10001", maker.TotalStaked)
	}
}

func TestCalbonusRequiresMatchingOwner(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	miner := addr(0x01)
	state.PutMaker(&Maker{Miner: miner, TotalStaked: big.NewInt(10_000), TotalWeight: initialPoolWeight})
	seedBill(state, miner, 1_000, testBaseTime-60)

	if _, err := engine.calbonus(addr(0x02), 77); err == nil {
		t.Fatalf("expected foreign owner to be rejected")
	}
}
