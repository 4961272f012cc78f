package dmc

import (
	"math/big"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/params"
)

// Order matches a buyer's reservation against a seller's bill. The buyer's
// pledge must cover ceil(price x amount) plus the deposit derived from the
// bill's deposit ratio; the full pledge is escrowed and split across locked
// payment, locked deposit and the at-risk settlement remainder.
func (e *Engine) Order(auth AuthContext, user, miner types.Address, billID uint64, amount, pledge *big.Int, memo string, depositValid int64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := e.requireAuth(auth, user); err != nil {
		return 0, err
	}
	if len(memo) > maxMemoBytes {
		return 0, errMemoTooLong
	}
	if user == miner {
		return 0, errSelfOrder
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, errInvalidAmount
	}
	if pledge == nil || pledge.Sign() < 0 {
		return 0, errInvalidPledge
	}

	bill, ok := e.state.GetBill(billID)
	if !ok || bill.Owner != miner {
		return 0, errBillNotFound
	}
	if bill.Unmatched.Cmp(amount) < 0 {
		return 0, errBillOverdrawn
	}

	now := e.now()
	if depositValid > bill.ExpireOn {
		return 0, errBillExpired
	}
	if depositValid < now+int64(e.getConfig(params.KeyOrderServiceEpoch)) {
		return 0, errDepositEpoch
	}

	// Amounts owed round up; the deposit preserves round-half-up on the bps
	// product.
	payment := mulPriceCeil(amount, bill.Price)
	deposit := roundBps(payment, bill.DepositRatioBps)
	required := new(big.Int).Add(payment, deposit)
	if pledge.Cmp(required) < 0 {
		return 0, errPledgeTooSmall
	}
	if err := e.debitDMC(user, pledge); err != nil {
		return 0, err
	}

	cappedNow, err := e.calbonus(miner, billID)
	if err != nil {
		return 0, err
	}

	bill.Unmatched = new(big.Int).Sub(bill.Unmatched, amount)
	bill.Matched = new(big.Int).Add(bill.Matched, amount)
	bill.UpdatedAt = cappedNow
	e.state.PutBill(bill)

	orderID := deriveID(user.Bytes(), miner.Bytes(), u64Bytes(billID), amountBytes(amount), amountBytes(pledge), []byte(memo), i64Bytes(now))
	for {
		if _, exists := e.state.GetOrder(orderID); !exists {
			break
		}
		orderID++
	}

	maker, ok := e.state.GetMaker(miner)
	if !ok {
		return 0, errMakerNotFound
	}
	rate := e.currentRate(maker.TotalStaked, miner)
	if rate == rateInfinity {
		// Zero minted exposure leaves the rate unbounded; locking against the
		// sentinel would record a nonsense collateral amount.
		return 0, errRateUnbounded
	}
	minerLockDMC := mulFloatTrunc(payment, rate)
	// The lock is recorded on the order and reflected in the rate, but the
	// staked collateral itself is not debited here; the pool's bookkeeping is
	// adjusted lazily. Known ambiguity carried over from the deployed
	// contract.
	maker.CurrentRate = e.currentRate(new(big.Int).Sub(maker.TotalStaked, minerLockDMC), miner)
	e.state.PutMaker(maker)

	userPledge := new(big.Int).Sub(pledge, payment)
	userPledge.Sub(userPledge, deposit)
	order := &Order{
		ID:               orderID,
		User:             user,
		Miner:            miner,
		BillID:           billID,
		UserPledge:       userPledge,
		MinerLockPST:     new(big.Int).Set(amount),
		MinerLockDMC:     minerLockDMC,
		SettlementPledge: big.NewInt(0),
		LockPledge:       payment,
		Price:            new(big.Int).Set(payment),
		State:            OrderStateWaiting,
		Deposit:          deposit,
		DepositValid:     depositValid,
	}
	e.state.PutOrder(order)

	challenge := &Challenge{
		OrderID:         orderID,
		MerkleSubmitter: e.admin,
		State:           ChallengePrepare,
		UserLock:        big.NewInt(0),
		MinerPay:        big.NewInt(0),
	}
	e.state.PutChallenge(challenge)

	if pledge.Sign() > 0 {
		e.emit(events.OrderPledgeReceipt{OrderID: orderID, Pledge: new(big.Int).Set(pledge), Timestamp: now})
	}

	board := e.state.PriceBoard()
	board.Record(DecodePrice(bill.Price), billID, now)
	e.state.SetPriceBoard(board)

	e.emit(events.OrderCreated{
		OrderID:      orderID,
		User:         user,
		Miner:        miner,
		BillID:       billID,
		LockedPST:    new(big.Int).Set(amount),
		LockedDMC:    new(big.Int).Set(minerLockDMC),
		Payment:      new(big.Int).Set(payment),
		Deposit:      new(big.Int).Set(deposit),
		DepositValid: depositValid,
	})
	e.emit(events.ChallengeCreated{OrderID: orderID})
	return orderID, nil
}
