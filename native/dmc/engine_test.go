package dmc

import (
	"math/big"
	"sort"
	"testing"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/oracle"
)

// mockState is an in-memory engineState for unit tests. Operations under test
// either succeed completely or are inspected mid-failure, so no journal is
// needed here.
type mockState struct {
	bills      map[uint64]*Bill
	orders     map[uint64]*Order
	challenges map[uint64]*Challenge
	makers     map[types.Address]*Maker
	shares     map[[2]types.Address]*PoolShare
	minted     map[types.Address]*big.Int
	accounts   map[types.Address]*types.Account
	board      *oracle.Board
	params     map[string]uint64
}

func newMockState() *mockState {
	return &mockState{
		bills:      make(map[uint64]*Bill),
		orders:     make(map[uint64]*Order),
		challenges: make(map[uint64]*Challenge),
		makers:     make(map[types.Address]*Maker),
		shares:     make(map[[2]types.Address]*PoolShare),
		minted:     make(map[types.Address]*big.Int),
		accounts:   make(map[types.Address]*types.Account),
		board:      oracle.NewBoard(0),
		params:     make(map[string]uint64),
	}
}

func (m *mockState) GetBill(id uint64) (*Bill, bool) {
	bill, ok := m.bills[id]
	return bill, ok
}

func (m *mockState) PutBill(bill *Bill)   { m.bills[bill.ID] = bill }
func (m *mockState) DeleteBill(id uint64) { delete(m.bills, id) }

func (m *mockState) BillsByOwner(owner types.Address) []*Bill {
	var bills []*Bill
	for _, bill := range m.bills {
		if bill.Owner == owner {
			bills = append(bills, bill)
		}
	}
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].CreatedAt != bills[j].CreatedAt {
			return bills[i].CreatedAt < bills[j].CreatedAt
		}
		return bills[i].ID < bills[j].ID
	})
	return bills
}

func (m *mockState) GetOrder(id uint64) (*Order, bool) {
	order, ok := m.orders[id]
	return order, ok
}

func (m *mockState) PutOrder(order *Order)             { m.orders[order.ID] = order }
func (m *mockState) PutChallenge(challenge *Challenge) { m.challenges[challenge.OrderID] = challenge }

func (m *mockState) GetMaker(addr types.Address) (*Maker, bool) {
	maker, ok := m.makers[addr]
	return maker, ok
}

func (m *mockState) PutMaker(maker *Maker) { m.makers[maker.Miner] = maker }

func (m *mockState) DeleteMaker(addr types.Address) {
	delete(m.makers, addr)
	for key := range m.shares {
		if key[0] == addr {
			delete(m.shares, key)
		}
	}
}

func (m *mockState) MakersByRate() []*Maker {
	makers := make([]*Maker, 0, len(m.makers))
	for _, maker := range m.makers {
		makers = append(makers, maker)
	}
	sort.Slice(makers, func(i, j int) bool {
		if makers[i].CurrentRate != makers[j].CurrentRate {
			return makers[i].CurrentRate < makers[j].CurrentRate
		}
		return string(makers[i].Miner[:]) < string(makers[j].Miner[:])
	})
	return makers
}

func (m *mockState) GetPoolShare(maker, owner types.Address) (*PoolShare, bool) {
	share, ok := m.shares[[2]types.Address{maker, owner}]
	return share, ok
}

func (m *mockState) PutPoolShare(share *PoolShare) {
	m.shares[[2]types.Address{share.Maker, share.Owner}] = share
}

func (m *mockState) DeletePoolShare(maker, owner types.Address) {
	delete(m.shares, [2]types.Address{maker, owner})
}

func (m *mockState) PoolShares(maker types.Address) []*PoolShare {
	var shares []*PoolShare
	for key, share := range m.shares {
		if key[0] == maker {
			shares = append(shares, share)
		}
	}
	return shares
}

func (m *mockState) MintedAmount(addr types.Address) *big.Int {
	if amount, ok := m.minted[addr]; ok {
		return new(big.Int).Set(amount)
	}
	return big.NewInt(0)
}

func (m *mockState) SetMintedAmount(addr types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		delete(m.minted, addr)
		return
	}
	m.minted[addr] = new(big.Int).Set(amount)
}

func (m *mockState) GetAccount(addr types.Address) *types.Account { return m.accounts[addr] }

func (m *mockState) PutAccount(addr types.Address, acc *types.Account) { m.accounts[addr] = acc }

func (m *mockState) PriceBoard() *oracle.Board         { return m.board }
func (m *mockState) SetPriceBoard(board *oracle.Board) { m.board = board }

func (m *mockState) ParamGet(name string) (uint64, bool) {
	value, ok := m.params[name]
	return value, ok
}

func (m *mockState) ParamSet(name string, value uint64) { m.params[name] = value }

// --- helpers ---

const testBaseTime int64 = 1_700_000_000

func addr(b byte) types.Address {
	var a types.Address
	a[types.AddressLength-1] = b
	return a
}

var (
	adminAddr    = addr(0xAA)
	recoveryAddr = addr(0xBB)
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *events.Queue) {
	t.Helper()
	state := newMockState()
	queue := events.NewQueue()
	engine := NewEngine(adminAddr, recoveryAddr)
	engine.SetState(state)
	engine.SetEmitter(queue)
	engine.SetNowFunc(func() int64 { return testBaseTime })
	return engine, state, queue
}

func fund(state *mockState, owner types.Address, dmcBalance, pstBalance int64) {
	acc := types.EnsureAccount(state.accounts[owner])
	acc.BalanceDMC = big.NewInt(dmcBalance)
	acc.BalancePST = big.NewInt(pstBalance)
	state.accounts[owner] = acc
}

func balanceDMC(state *mockState, owner types.Address) *big.Int {
	return types.EnsureAccount(state.accounts[owner]).BalanceDMC
}

func balancePST(state *mockState, owner types.Address) *big.Int {
	return types.EnsureAccount(state.accounts[owner]).BalancePST
}

func mustEncodePrice(t *testing.T, price float64) uint64 {
	t.Helper()
	fixed, err := EncodePrice(price)
	if err != nil {
		t.Fatalf("encode price %v: %v", price, err)
	}
	return fixed
}

func drainedTypes(queue *events.Queue) []string {
	var out []string
	for _, ev := range queue.Drain() {
		out = append(out, ev.EventType())
	}
	return out
}

func hasEventType(typesSeen []string, want string) bool {
	for _, t := range typesSeen {
		if t == want {
			return true
		}
	}
	return false
}

func TestSetConfigAdminOnly(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	if err := engine.SetConfig(AuthAll{}, addr(0x01), "bmrate", 300); err == nil {
		t.Fatalf("expected non-admin setconfig to fail")
	}
	if err := engine.SetConfig(AuthAll{}, adminAddr, "bmrate", 300); err != nil {
		t.Fatalf("admin setconfig: %v", err)
	}
	if got, ok := state.ParamGet("bmrate"); !ok || got != 300 {
		t.Fatalf("bmrate = %d, %v; want 300, true", got, ok)
	}
	if err := engine.SetConfig(AuthAll{}, adminAddr, "claiminter", 0); err == nil {
		t.Fatalf("expected zero claim interval to be rejected")
	}
}

func TestDeriveIDDeterministic(t *testing.T) {
	a := deriveID([]byte("owner"), []byte("PST"), u64Bytes(42))
	b := deriveID([]byte("owner"), []byte("PST"), u64Bytes(42))
	if a != b {
		t.Fatalf("identical inputs produced different ids: %d vs %d", a, b)
	}
	c := deriveID([]byte("owner"), []byte("PST"), u64Bytes(43))
	if a == c {
		t.Fatalf("different inputs produced identical ids")
	}
}

func TestReleaseMatured(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	owner := addr(0x01)
	fund(state, owner, 0, 0)

	engine.creditLockedDMC(owner, big.NewInt(100), testBaseTime+10)
	engine.creditLockedDMC(owner, big.NewInt(50), testBaseTime+500)

	released := engine.ReleaseMatured(owner, testBaseTime+10)
	if released.Int64() != 100 {
		t.Fatalf("released = %s, want 100", released)
	}
	if got := balanceDMC(state, owner).Int64(); got != 100 {
		t.Fatalf("free balance = %d, want 100", got)
	}
	if remaining := len(state.accounts[owner].LockedDMC); remaining != 1 {
		t.Fatalf("remaining locks = %d, want 1", remaining)
	}
}
