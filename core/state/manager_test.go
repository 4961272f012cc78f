package state

import (
	"math/big"
	"testing"

	"dmcchain/core/types"
	"dmcchain/native/dmc"
	"dmcchain/storage"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[types.AddressLength-1] = b
	return a
}

func seedManager(m *Manager) {
	owner := testAddr(0x01)
	m.PutBill(&dmc.Bill{ID: 1, Owner: owner, Unmatched: big.NewInt(500), Matched: big.NewInt(100), Price: 1 << 33, CreatedAt: 10, UpdatedAt: 10, ExpireOn: 1_000})
	m.PutOrder(&dmc.Order{ID: 2, User: testAddr(0x02), Miner: owner, BillID: 1, UserPledge: big.NewInt(0), MinerLockPST: big.NewInt(100), MinerLockDMC: big.NewInt(50), SettlementPledge: big.NewInt(0), LockPledge: big.NewInt(250), Price: big.NewInt(250), Deposit: big.NewInt(25)})
	m.PutChallenge(&dmc.Challenge{OrderID: 2, UserLock: big.NewInt(0), MinerPay: big.NewInt(0)})
	m.PutMaker(&dmc.Maker{Miner: owner, CurrentRate: 50, MinerRate: 1, TotalWeight: 10_000, TotalStaked: big.NewInt(10_000), BenchmarkStakeRate: 200})
	m.PutPoolShare(&dmc.PoolShare{Maker: owner, Owner: owner, Weight: 10_000})
	m.SetMintedAmount(owner, big.NewInt(200))
	m.PutAccount(owner, &types.Account{BalanceDMC: big.NewInt(77), BalancePST: big.NewInt(33)})
	m.ParamSet("bmrate", 250)
	m.PriceBoard().Record(2.5, 1, 100)
}

func TestSnapshotRevertRestoresState(t *testing.T) {
	m := NewManager(0)
	seedManager(m)
	owner := testAddr(0x01)

	snap := m.Snapshot()

	bill, _ := m.GetBill(1)
	bill.Unmatched = big.NewInt(0)
	m.PutBill(bill)
	m.DeleteMaker(owner)
	m.PutAccount(owner, &types.Account{BalanceDMC: big.NewInt(0), BalancePST: big.NewInt(0)})
	m.SetMintedAmount(owner, big.NewInt(999))
	m.PriceBoard().Record(9.0, 2, 101)

	m.RevertToSnapshot(snap)

	bill, ok := m.GetBill(1)
	if !ok || bill.Unmatched.Int64() != 500 {
		t.Fatalf("bill unmatched = %v, want 500", bill)
	}
	if _, ok := m.GetMaker(owner); !ok {
		t.Fatalf("maker missing after revert")
	}
	if _, ok := m.GetPoolShare(owner, owner); !ok {
		t.Fatalf("pool share missing after revert")
	}
	if got := m.MintedAmount(owner).Int64(); got != 200 {
		t.Fatalf("minted = %d, want 200", got)
	}
	if acc := m.GetAccount(owner); acc.BalanceDMC.Int64() != 77 {
		t.Fatalf("balance = %s, want 77", acc.BalanceDMC)
	}
	if board := m.PriceBoard(); board.Count != 1 || board.Average != 2.5 {
		t.Fatalf("board count/avg = %d/%v, want 1/2.5", board.Count, board.Average)
	}
}

func TestSnapshotDiscardKeepsMutations(t *testing.T) {
	m := NewManager(0)
	seedManager(m)

	snap := m.Snapshot()
	bill, _ := m.GetBill(1)
	bill.Unmatched = big.NewInt(400)
	m.PutBill(bill)
	m.DiscardSnapshot(snap)

	bill, _ = m.GetBill(1)
	if bill.Unmatched.Int64() != 400 {
		t.Fatalf("bill unmatched = %s, want 400", bill.Unmatched)
	}
}

func TestNestedSnapshots(t *testing.T) {
	m := NewManager(0)
	seedManager(m)
	owner := testAddr(0x01)

	outer := m.Snapshot()
	m.SetMintedAmount(owner, big.NewInt(300))
	inner := m.Snapshot()
	m.SetMintedAmount(owner, big.NewInt(400))

	m.RevertToSnapshot(inner)
	if got := m.MintedAmount(owner).Int64(); got != 300 {
		t.Fatalf("minted after inner revert = %d, want 300", got)
	}
	m.RevertToSnapshot(outer)
	if got := m.MintedAmount(owner).Int64(); got != 200 {
		t.Fatalf("minted after outer revert = %d, want 200", got)
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(0)
	seedManager(m)

	if err := m.Flush(db); err != nil {
		t.Fatalf("flush: %v", err)
	}

	loaded := NewManager(0)
	if err := loaded.Load(db); err != nil {
		t.Fatalf("load: %v", err)
	}

	owner := testAddr(0x01)
	bill, ok := loaded.GetBill(1)
	if !ok || bill.Unmatched.Int64() != 500 || bill.Owner != owner {
		t.Fatalf("loaded bill = %+v", bill)
	}
	order, ok := loaded.GetOrder(2)
	if !ok || order.LockPledge.Int64() != 250 {
		t.Fatalf("loaded order = %+v", order)
	}
	if _, ok := loaded.GetChallenge(2); !ok {
		t.Fatalf("challenge missing after load")
	}
	maker, ok := loaded.GetMaker(owner)
	if !ok || maker.TotalStaked.Int64() != 10_000 {
		t.Fatalf("loaded maker = %+v", maker)
	}
	if _, ok := loaded.GetPoolShare(owner, owner); !ok {
		t.Fatalf("pool share missing after load")
	}
	if got := loaded.MintedAmount(owner).Int64(); got != 200 {
		t.Fatalf("minted = %d, want 200", got)
	}
	if acc := loaded.GetAccount(owner); acc == nil || acc.BalanceDMC.Int64() != 77 {
		t.Fatalf("loaded account = %+v", acc)
	}
	if got, ok := loaded.ParamGet("bmrate"); !ok || got != 250 {
		t.Fatalf("param bmrate = %d, %v; want 250", got, ok)
	}
	if board := loaded.PriceBoard(); board.Count != 1 || board.Average != 2.5 {
		t.Fatalf("loaded board count/avg = %d/%v", board.Count, board.Average)
	}
}

func TestLoadFromEmptyStoreLeavesManagerEmpty(t *testing.T) {
	m := NewManager(0)
	if err := m.Load(storage.NewMemDB()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Bills()) != 0 || len(m.Orders()) != 0 {
		t.Fatalf("fresh manager not empty")
	}
}

func TestMakersByRateOrdersAscending(t *testing.T) {
	m := NewManager(0)
	m.PutMaker(&dmc.Maker{Miner: testAddr(0x01), CurrentRate: 50, TotalStaked: big.NewInt(1), TotalWeight: 1})
	m.PutMaker(&dmc.Maker{Miner: testAddr(0x02), CurrentRate: 10, TotalStaked: big.NewInt(1), TotalWeight: 1})
	m.PutMaker(&dmc.Maker{Miner: testAddr(0x03), CurrentRate: 30, TotalStaked: big.NewInt(1), TotalWeight: 1})

	makers := m.MakersByRate()
	if len(makers) != 3 {
		t.Fatalf("len = %d, want 3", len(makers))
	}
	if makers[0].CurrentRate != 10 || makers[1].CurrentRate != 30 || makers[2].CurrentRate != 50 {
		t.Fatalf("rates = %v, %v, %v; want ascending", makers[0].CurrentRate, makers[1].CurrentRate, makers[2].CurrentRate)
	}
}

func TestBillsByOwnerOldestFirst(t *testing.T) {
	m := NewManager(0)
	owner := testAddr(0x01)
	m.PutBill(&dmc.Bill{ID: 5, Owner: owner, Unmatched: big.NewInt(1), Matched: big.NewInt(0), CreatedAt: 30})
	m.PutBill(&dmc.Bill{ID: 6, Owner: owner, Unmatched: big.NewInt(1), Matched: big.NewInt(0), CreatedAt: 10})
	m.PutBill(&dmc.Bill{ID: 7, Owner: testAddr(0x02), Unmatched: big.NewInt(1), Matched: big.NewInt(0), CreatedAt: 5})

	bills := m.BillsByOwner(owner)
	if len(bills) != 2 {
		t.Fatalf("len = %d, want 2", len(bills))
	}
	if bills[0].ID != 6 || bills[1].ID != 5 {
		t.Fatalf("order = %d, %d; want 6, 5", bills[0].ID, bills[1].ID)
	}
}
