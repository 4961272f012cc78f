package dmc

import (
	"math/big"

	"dmcchain/core/events"
	"dmcchain/core/types"
	"dmcchain/native/params"
)

// assetTagPST distinguishes the service-capacity asset inside identifier
// digests.
var assetTagPST = []byte("PST")

// Bill lists service capacity for sale at a fixed Q32.32 price. The offered
// amount is debited from the owner's free PST balance and held by the bill
// until matched, liquidated or cancelled.
func (e *Engine) Bill(auth AuthContext, owner types.Address, amount *big.Int, priceFixed uint64, expireOn int64, depositRatioBps uint64, memo string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return 0, err
	}
	if len(memo) > maxMemoBytes {
		return 0, errMemoTooLong
	}
	if priceFixed < minPriceFixed {
		return 0, errInvalidPrice
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, errInvalidAmount
	}

	now := e.now()
	if expireOn < now+int64(e.getConfig(params.KeyServiceInterval)) {
		return 0, errServiceTime
	}

	if err := e.debitPST(owner, amount); err != nil {
		return 0, err
	}

	id := deriveID(owner.Bytes(), assetTagPST, amountBytes(amount), u64Bytes(priceFixed), i64Bytes(now), []byte(memo))
	if _, exists := e.state.GetBill(id); exists {
		// A duplicate digest at this key width is not expected; reject rather
		// than probe so bill ids stay reproducible from their inputs.
		return 0, errDuplicateBill
	}

	e.state.PutBill(&Bill{
		ID:              id,
		Owner:           owner,
		Unmatched:       new(big.Int).Set(amount),
		Matched:         big.NewInt(0),
		Price:           priceFixed,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpireOn:        expireOn,
		DepositRatioBps: depositRatioBps,
	})

	e.emit(events.BillCreated{Owner: owner, BillID: id, Amount: new(big.Int).Set(amount)})
	return id, nil
}

// Unbill cancels a standing bill, running bonus accrual first, and refunds
// the unmatched amount to the owner's free PST balance.
func (e *Engine) Unbill(auth AuthContext, owner types.Address, billID uint64, memo string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requireAuth(auth, owner); err != nil {
		return err
	}
	if len(memo) > maxMemoBytes {
		return errMemoTooLong
	}

	bill, ok := e.state.GetBill(billID)
	if !ok || bill.Owner != owner {
		return errBillNotFound
	}
	unmatched := new(big.Int).Set(bill.Unmatched)

	if _, err := e.calbonus(owner, billID); err != nil {
		return err
	}

	e.state.DeleteBill(billID)
	e.creditPST(owner, unmatched)

	e.emit(events.BillRemoved{Owner: owner, BillID: billID, Amount: unmatched})
	return nil
}
