package dmc

import (
	"encoding/binary"
	"math"
	"math/big"
	"sort"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/oracle"
	"dmcchain/native/params"
)

// maxMemoBytes bounds the caller-supplied memo on every entry point.
const maxMemoBytes = 256

// initialPoolWeight is the weight assigned to a maker bootstrapping its own
// pool.
const initialPoolWeight = 10_000.0

// rateInfinity is the sentinel collateralization rate for makers with no
// minted exposure.
const rateInfinity = float64(math.MaxUint64)

// incentiveRate is the bonus accrual coefficient applied to the benchmark
// rate when rewarding unmatched committed capacity.
const incentiveRate = 0.05

// rsiUnit scales the per-second per-capacity-unit reward rate into reward
// base units so sub-unit rates survive the floor.
const rsiUnit = 100_000_000.0

// redemptionLockSeconds delays redemption payouts by three days.
const redemptionLockSeconds int64 = 3 * 24 * 3600

// makerRateChangeCooldown gates successive benchmark stake rate changes.
const makerRateChangeCooldown int64 = 7 * 24 * 3600

// liquidationBatchSize caps the makers processed per liquidation sweep; full
// sweeps require repeated invocations.
const liquidationBatchSize = 20

// engineState is the persistence surface the engine mutates. The host applies
// each operation atomically: on error it reverts every mutation performed by
// that operation.
type engineState interface {
	GetBill(id uint64) (*Bill, bool)
	PutBill(*Bill)
	DeleteBill(id uint64)
	BillsByOwner(owner types.Address) []*Bill

	GetOrder(id uint64) (*Order, bool)
	PutOrder(*Order)
	PutChallenge(*Challenge)

	GetMaker(addr types.Address) (*Maker, bool)
	PutMaker(*Maker)
	DeleteMaker(addr types.Address)
	MakersByRate() []*Maker

	GetPoolShare(maker, owner types.Address) (*PoolShare, bool)
	PutPoolShare(*PoolShare)
	DeletePoolShare(maker, owner types.Address)
	PoolShares(maker types.Address) []*PoolShare

	MintedAmount(addr types.Address) *big.Int
	SetMintedAmount(addr types.Address, amount *big.Int)

	GetAccount(addr types.Address) *types.Account
	PutAccount(addr types.Address, acc *types.Account)

	PriceBoard() *oracle.Board
	SetPriceBoard(*oracle.Board)

	ParamGet(name string) (uint64, bool)
	ParamSet(name string, value uint64)
}

// AuthContext proves which principals authorised the current request. The
// host verifies identity; the engine only checks the named principal is
// covered.
type AuthContext interface {
	Authorized(addr types.Address) bool
}

// AuthAll authorises every principal. Intended for hosts that perform their
// own signature verification before invoking the engine, and for tests.
type AuthAll struct{}

// Authorized implements AuthContext.
func (AuthAll) Authorized(types.Address) bool { return true }

// Engine is the deterministic accounting core: billing, ordering, the
// weighted stake pool, bonus accrual, liquidation and price tracing. It is a
// pure synchronous state-transition function; the host serialises operations
// and supplies atomicity.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	admin    types.Address
	recovery types.Address
	nowFn    func() int64
}

// NewEngine constructs an engine configured with the system administrator and
// recovery identities.
func NewEngine(admin, recovery types.Address) *Engine {
	return &Engine{
		admin:    admin,
		recovery: recovery,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the host persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Admin returns the configured system administrator identity.
func (e *Engine) Admin() types.Address { return e.admin }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(ev events.Event) {
	if e == nil || e.emitter == nil || ev == nil {
		return
	}
	e.emitter.Emit(ev)
}

func (e *Engine) requireAuth(auth AuthContext, addr types.Address) error {
	if auth == nil || !auth.Authorized(addr) {
		return errUnauthorized
	}
	return nil
}

func (e *Engine) getConfig(key string) uint64 {
	if value, ok := e.state.ParamGet(key); ok {
		return value
	}
	return params.Default(key)
}

// SetConfig is the administrative configuration entry point.
func (e *Engine) SetConfig(auth AuthContext, caller types.Address, key string, value uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.admin {
		return errUnauthorized
	}
	if err := e.requireAuth(auth, caller); err != nil {
		return err
	}
	if key == params.KeyClaimsInterval && value == 0 {
		return errInvalidConfig
	}
	e.state.ParamSet(key, value)
	return nil
}

// --- balance helpers ---

func (e *Engine) account(addr types.Address) *types.Account {
	return types.EnsureAccount(e.state.GetAccount(addr))
}

func (e *Engine) debitDMC(addr types.Address, amount *big.Int) error {
	acc := e.account(addr)
	if acc.BalanceDMC.Cmp(amount) < 0 {
		return errInsufficientFunds
	}
	acc.BalanceDMC = new(big.Int).Sub(acc.BalanceDMC, amount)
	e.state.PutAccount(addr, acc)
	return nil
}

func (e *Engine) creditDMC(addr types.Address, amount *big.Int) {
	acc := e.account(addr)
	acc.BalanceDMC = new(big.Int).Add(acc.BalanceDMC, amount)
	e.state.PutAccount(addr, acc)
}

func (e *Engine) debitPST(addr types.Address, amount *big.Int) error {
	acc := e.account(addr)
	if acc.BalancePST.Cmp(amount) < 0 {
		return errInsufficientFunds
	}
	acc.BalancePST = new(big.Int).Sub(acc.BalancePST, amount)
	e.state.PutAccount(addr, acc)
	return nil
}

func (e *Engine) creditPST(addr types.Address, amount *big.Int) {
	acc := e.account(addr)
	acc.BalancePST = new(big.Int).Add(acc.BalancePST, amount)
	e.state.PutAccount(addr, acc)
}

func (e *Engine) creditLockedDMC(addr types.Address, amount *big.Int, maturesAt int64) {
	acc := e.account(addr)
	acc.LockedDMC = append(acc.LockedDMC, types.LockedBalance{
		Amount:    new(big.Int).Set(amount),
		MaturesAt: maturesAt,
	})
	e.state.PutAccount(addr, acc)
}

// ReleaseMatured moves matured time-locked DMC into the free balance and
// returns the released total.
func (e *Engine) ReleaseMatured(addr types.Address, now int64) *big.Int {
	acc := e.account(addr)
	released := big.NewInt(0)
	remaining := acc.LockedDMC[:0]
	for _, lb := range acc.LockedDMC {
		if lb.MaturesAt <= now {
			released.Add(released, lb.Amount)
		} else {
			remaining = append(remaining, lb)
		}
	}
	if released.Sign() > 0 {
		acc.LockedDMC = remaining
		acc.BalanceDMC = new(big.Int).Add(acc.BalanceDMC, released)
		e.state.PutAccount(addr, acc)
	}
	return released
}

// --- rate helpers ---

// currentRate is valued(stake)/minted, or the infinity sentinel while the
// maker has no minted exposure.
func (e *Engine) currentRate(stake *big.Int, miner types.Address) float64 {
	minted := e.state.MintedAmount(miner)
	if minted == nil || minted.Sign() == 0 {
		return rateInfinity
	}
	return bigToFloat(stake) / bigToFloat(minted)
}

// dmcRate converts a percent-encoded rate into an absolute value through the
// price window average, falling back to the configured initial price.
func (e *Engine) dmcRate(encoded uint64) float64 {
	board := e.state.PriceBoard()
	return board.Value(encoded, float64(e.getConfig(params.KeyInitialPrice)))
}

func (e *Engine) sortedPoolShares(maker types.Address) []*PoolShare {
	shares := e.state.PoolShares(maker)
	sort.Slice(shares, func(i, j int) bool {
		return string(shares[i].Owner[:]) < string(shares[j].Owner[:])
	})
	return shares
}

// --- identifier derivation ---

// deriveID truncates a Keccak-256 digest of the supplied fields to its
// leading 64 bits.
func deriveID(fields ...[]byte) uint64 {
	digest := ethcrypto.Keccak256(fields...)
	return binary.BigEndian.Uint64(digest[:8])
}

func u64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func i64Bytes(v int64) []byte {
	return u64Bytes(uint64(v))
}

func amountBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}
