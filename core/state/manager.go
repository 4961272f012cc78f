package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"dmcchain/core/types"
	"dmcchain/native/dmc"
	"dmcchain/native/oracle"
	"dmcchain/storage"
)

// persistKey is the single storage slot holding the serialised engine state.
var persistKey = []byte("dmc/state")

type shareKey struct {
	maker types.Address
	owner types.Address
}

// Manager is the in-memory world state backing the accounting engine. It
// satisfies the engine's persistence surface and the parameter store, and
// supplies the journal the host uses to apply operations atomically:
// Snapshot before an operation, RevertToSnapshot if it fails.
type Manager struct {
	bills      map[uint64]*dmc.Bill
	orders     map[uint64]*dmc.Order
	challenges map[uint64]*dmc.Challenge
	makers     map[types.Address]*dmc.Maker
	shares     map[shareKey]*dmc.PoolShare
	minted     map[types.Address]*big.Int
	accounts   map[types.Address]*types.Account
	params     map[string]uint64
	board      *oracle.Board

	snapshots []*snapshot
}

type snapshot struct {
	bills      map[uint64]*dmc.Bill
	orders     map[uint64]*dmc.Order
	challenges map[uint64]*dmc.Challenge
	makers     map[types.Address]*dmc.Maker
	shares     map[shareKey]*dmc.PoolShare
	minted     map[types.Address]*big.Int
	accounts   map[types.Address]*types.Account
	params     map[string]uint64
	board      *oracle.Board
}

// NewManager constructs an empty world state with the supplied price window.
func NewManager(priceWindowSeconds int64) *Manager {
	return &Manager{
		bills:      make(map[uint64]*dmc.Bill),
		orders:     make(map[uint64]*dmc.Order),
		challenges: make(map[uint64]*dmc.Challenge),
		makers:     make(map[types.Address]*dmc.Maker),
		shares:     make(map[shareKey]*dmc.PoolShare),
		minted:     make(map[types.Address]*big.Int),
		accounts:   make(map[types.Address]*types.Account),
		params:     make(map[string]uint64),
		board:      oracle.NewBoard(priceWindowSeconds),
	}
}

// --- bills ---

func (m *Manager) GetBill(id uint64) (*dmc.Bill, bool) {
	bill, ok := m.bills[id]
	return bill, ok
}

func (m *Manager) PutBill(bill *dmc.Bill) {
	if bill == nil {
		return
	}
	m.bills[bill.ID] = bill
}

func (m *Manager) DeleteBill(id uint64) {
	delete(m.bills, id)
}

// BillsByOwner returns the owner's bills oldest first, ties broken by id so
// the order is deterministic.
func (m *Manager) BillsByOwner(owner types.Address) []*dmc.Bill {
	var bills []*dmc.Bill
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

// Bills returns every standing bill, ordered by id.
func (m *Manager) Bills() []*dmc.Bill {
	bills := make([]*dmc.Bill, 0, len(m.bills))
	for _, bill := range m.bills {
		bills = append(bills, bill)
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].ID < bills[j].ID })
	return bills
}

// --- orders and challenges ---

func (m *Manager) GetOrder(id uint64) (*dmc.Order, bool) {
	order, ok := m.orders[id]
	return order, ok
}

func (m *Manager) PutOrder(order *dmc.Order) {
	if order == nil {
		return
	}
	m.orders[order.ID] = order
}

func (m *Manager) PutChallenge(challenge *dmc.Challenge) {
	if challenge == nil {
		return
	}
	m.challenges[challenge.OrderID] = challenge
}

func (m *Manager) GetChallenge(orderID uint64) (*dmc.Challenge, bool) {
	challenge, ok := m.challenges[orderID]
	return challenge, ok
}

// Orders returns every order, ordered by id.
func (m *Manager) Orders() []*dmc.Order {
	orders := make([]*dmc.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// --- makers and pool shares ---

func (m *Manager) GetMaker(addr types.Address) (*dmc.Maker, bool) {
	maker, ok := m.makers[addr]
	return maker, ok
}

func (m *Manager) PutMaker(maker *dmc.Maker) {
	if maker == nil {
		return
	}
	m.makers[maker.Miner] = maker
}

func (m *Manager) DeleteMaker(addr types.Address) {
	delete(m.makers, addr)
	for key := range m.shares {
		if key.maker == addr {
			delete(m.shares, key)
		}
	}
}

// MakersByRate returns makers in ascending collateralization order, ties
// broken by address.
func (m *Manager) MakersByRate() []*dmc.Maker {
	makers := make([]*dmc.Maker, 0, len(m.makers))
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

func (m *Manager) GetPoolShare(maker, owner types.Address) (*dmc.PoolShare, bool) {
	share, ok := m.shares[shareKey{maker: maker, owner: owner}]
	return share, ok
}

func (m *Manager) PutPoolShare(share *dmc.PoolShare) {
	if share == nil {
		return
	}
	m.shares[shareKey{maker: share.Maker, owner: share.Owner}] = share
}

func (m *Manager) DeletePoolShare(maker, owner types.Address) {
	delete(m.shares, shareKey{maker: maker, owner: owner})
}

func (m *Manager) PoolShares(maker types.Address) []*dmc.PoolShare {
	var shares []*dmc.PoolShare
	for key, share := range m.shares {
		if key.maker == maker {
			shares = append(shares, share)
		}
	}
	return shares
}

// --- minted totals ---

func (m *Manager) MintedAmount(addr types.Address) *big.Int {
	if amount, ok := m.minted[addr]; ok {
		return new(big.Int).Set(amount)
	}
	return big.NewInt(0)
}

func (m *Manager) SetMintedAmount(addr types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		delete(m.minted, addr)
		return
	}
	m.minted[addr] = new(big.Int).Set(amount)
}

// --- accounts ---

func (m *Manager) GetAccount(addr types.Address) *types.Account {
	return m.accounts[addr]
}

func (m *Manager) PutAccount(addr types.Address, acc *types.Account) {
	if acc == nil {
		delete(m.accounts, addr)
		return
	}
	m.accounts[addr] = acc
}

// --- price board ---

func (m *Manager) PriceBoard() *oracle.Board {
	if m.board == nil {
		m.board = oracle.NewBoard(0)
	}
	return m.board
}

func (m *Manager) SetPriceBoard(board *oracle.Board) {
	if board == nil {
		return
	}
	m.board = board
}

// --- parameters ---

func (m *Manager) ParamGet(name string) (uint64, bool) {
	value, ok := m.params[name]
	return value, ok
}

func (m *Manager) ParamSet(name string, value uint64) {
	m.params[name] = value
}

// --- journal ---

// Snapshot records a deep copy of the world state and returns its handle.
func (m *Manager) Snapshot() int {
	m.snapshots = append(m.snapshots, m.copyState())
	return len(m.snapshots) - 1
}

// RevertToSnapshot restores the state captured by Snapshot and discards every
// later snapshot. An unknown handle is a programming error and panics, the
// same contract an EVM state journal follows.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		panic(fmt.Sprintf("state: unknown snapshot %d", id))
	}
	snap := m.snapshots[id]
	m.bills = snap.bills
	m.orders = snap.orders
	m.challenges = snap.challenges
	m.makers = snap.makers
	m.shares = snap.shares
	m.minted = snap.minted
	m.accounts = snap.accounts
	m.params = snap.params
	m.board = snap.board
	m.snapshots = m.snapshots[:id]
}

// DiscardSnapshot drops the snapshot after a successful commit.
func (m *Manager) DiscardSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.snapshots = m.snapshots[:id]
}

func (m *Manager) copyState() *snapshot {
	snap := &snapshot{
		bills:      make(map[uint64]*dmc.Bill, len(m.bills)),
		orders:     make(map[uint64]*dmc.Order, len(m.orders)),
		challenges: make(map[uint64]*dmc.Challenge, len(m.challenges)),
		makers:     make(map[types.Address]*dmc.Maker, len(m.makers)),
		shares:     make(map[shareKey]*dmc.PoolShare, len(m.shares)),
		minted:     make(map[types.Address]*big.Int, len(m.minted)),
		accounts:   make(map[types.Address]*types.Account, len(m.accounts)),
		params:     make(map[string]uint64, len(m.params)),
		board:      m.board.Clone(),
	}
	for id, bill := range m.bills {
		snap.bills[id] = bill.Clone()
	}
	for id, order := range m.orders {
		snap.orders[id] = order.Clone()
	}
	for id, challenge := range m.challenges {
		snap.challenges[id] = challenge.Clone()
	}
	for addr, maker := range m.makers {
		snap.makers[addr] = maker.Clone()
	}
	for key, share := range m.shares {
		snap.shares[key] = share.Clone()
	}
	for addr, amount := range m.minted {
		snap.minted[addr] = new(big.Int).Set(amount)
	}
	for addr, acc := range m.accounts {
		snap.accounts[addr] = acc.Clone()
	}
	for name, value := range m.params {
		snap.params[name] = value
	}
	return snap
}

// --- persistence ---

type persistedState struct {
	Bills      []*dmc.Bill               `json:"bills"`
	Orders     []*dmc.Order              `json:"orders"`
	Challenges []*dmc.Challenge          `json:"challenges"`
	Makers     []*dmc.Maker              `json:"makers"`
	Shares     []*dmc.PoolShare          `json:"shares"`
	Minted     []dmc.MintedStats         `json:"minted"`
	Accounts   map[string]*types.Account `json:"accounts"`
	Params     map[string]uint64         `json:"params"`
	Board      *oracle.Board             `json:"board"`
}

// Flush serialises the world state into the backing store.
func (m *Manager) Flush(db storage.Database) error {
	persisted := &persistedState{
		Bills:    m.Bills(),
		Orders:   m.Orders(),
		Accounts: make(map[string]*types.Account, len(m.accounts)),
		Params:   m.params,
		Board:    m.board,
	}
	for _, order := range persisted.Orders {
		if challenge, ok := m.challenges[order.ID]; ok {
			persisted.Challenges = append(persisted.Challenges, challenge)
		}
	}
	persisted.Makers = append(persisted.Makers, m.MakersByRate()...)
	for _, share := range m.shares {
		persisted.Shares = append(persisted.Shares, share)
	}
	sort.Slice(persisted.Shares, func(i, j int) bool {
		a, b := persisted.Shares[i], persisted.Shares[j]
		if a.Maker != b.Maker {
			return string(a.Maker[:]) < string(b.Maker[:])
		}
		return string(a.Owner[:]) < string(b.Owner[:])
	})
	for addr, amount := range m.minted {
		persisted.Minted = append(persisted.Minted, dmc.MintedStats{Miner: addr, Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(persisted.Minted, func(i, j int) bool {
		return string(persisted.Minted[i].Miner[:]) < string(persisted.Minted[j].Miner[:])
	})
	for addr, acc := range m.accounts {
		persisted.Accounts[addr.String()] = acc
	}

	encoded, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := db.Put(persistKey, encoded); err != nil {
		return fmt.Errorf("state: flush: %w", err)
	}
	return nil
}

// Load replaces the world state with the serialised copy in the backing
// store. A missing record leaves the manager empty.
func (m *Manager) Load(db storage.Database) error {
	ok, err := db.Has(persistKey)
	if err != nil {
		return fmt.Errorf("state: probe: %w", err)
	}
	if !ok {
		return nil
	}
	encoded, err := db.Get(persistKey)
	if err != nil {
		return fmt.Errorf("state: load: %w", err)
	}
	var persisted persistedState
	if err := json.Unmarshal(encoded, &persisted); err != nil {
		return fmt.Errorf("state: decode: %w", err)
	}

	m.bills = make(map[uint64]*dmc.Bill, len(persisted.Bills))
	for _, bill := range persisted.Bills {
		m.bills[bill.ID] = bill
	}
	m.orders = make(map[uint64]*dmc.Order, len(persisted.Orders))
	for _, order := range persisted.Orders {
		m.orders[order.ID] = order
	}
	m.challenges = make(map[uint64]*dmc.Challenge, len(persisted.Challenges))
	for _, challenge := range persisted.Challenges {
		m.challenges[challenge.OrderID] = challenge
	}
	m.makers = make(map[types.Address]*dmc.Maker, len(persisted.Makers))
	for _, maker := range persisted.Makers {
		m.makers[maker.Miner] = maker
	}
	m.shares = make(map[shareKey]*dmc.PoolShare, len(persisted.Shares))
	for _, share := range persisted.Shares {
		m.shares[shareKey{maker: share.Maker, owner: share.Owner}] = share
	}
	m.minted = make(map[types.Address]*big.Int, len(persisted.Minted))
	for _, entry := range persisted.Minted {
		m.minted[entry.Miner] = entry.Amount
	}
	m.accounts = make(map[types.Address]*types.Account, len(persisted.Accounts))
	for encodedAddr, acc := range persisted.Accounts {
		addr, err := types.ParseAddress(encodedAddr)
		if err != nil {
			return fmt.Errorf("state: decode account key %q: %w", encodedAddr, err)
		}
		m.accounts[addr] = acc
	}
	if persisted.Params != nil {
		m.params = persisted.Params
	} else {
		m.params = make(map[string]uint64)
	}
	if persisted.Board != nil {
		m.board = persisted.Board
	}
	m.snapshots = nil
	return nil
}
