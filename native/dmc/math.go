package dmc

import (
	"math"
	"math/big"
)

// Prices are persisted as Q32.32 fixed point: a 32-bit integer part and a
// 32-bit fractional part packed into a uint64. Conversions document their
// rounding direction at every boundary: amounts owed round up, amounts
// returned or distributed round down.
const (
	priceScaleBits = 32
	// minPriceFixed is 0.0001 encoded, the lowest listable unit price.
	minPriceFixed uint64 = 429_496
)

var priceScale = new(big.Int).Lsh(big.NewInt(1), priceScaleBits)

// EncodePrice packs a decimal price into Q32.32, truncating the fraction.
// Valid prices lie in [0.0001, 2^32).
func EncodePrice(price float64) (uint64, error) {
	if price < 0.0001 || price >= math.Pow(2, 32) {
		return 0, errInvalidPrice
	}
	return uint64(price * math.Pow(2, 32)), nil
}

// DecodePrice recovers the decimal price from its fixed-point encoding.
func DecodePrice(fixed uint64) float64 {
	return float64(fixed) / math.Pow(2, 32)
}

// mulPriceCeil computes ceil(amount x price) in pure integer arithmetic:
// (amount*fixed + 2^32 - 1) >> 32. Used for amounts owed.
func mulPriceCeil(amount *big.Int, priceFixed uint64) *big.Int {
	product := new(big.Int).Mul(amount, new(big.Int).SetUint64(priceFixed))
	product.Add(product, new(big.Int).Sub(priceScale, big.NewInt(1)))
	return product.Rsh(product, priceScaleBits)
}

// roundBps computes round-half-up(amount x bps / 10000). Used for the order
// deposit derived from a bill's deposit ratio.
func roundBps(amount *big.Int, bps uint64) *big.Int {
	product := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	product.Add(product, big.NewInt(5_000))
	return product.Quo(product, big.NewInt(10_000))
}

// mulFloatTrunc computes amount x factor truncated toward zero.
func mulFloatTrunc(amount *big.Int, factor float64) *big.Int {
	product := new(big.Float).SetInt(amount)
	product.Mul(product, big.NewFloat(factor))
	out, _ := product.Int(nil)
	return out
}

// mulFloatCeil computes ceil(amount x factor) for non-negative inputs.
func mulFloatCeil(amount *big.Int, factor float64) *big.Int {
	product := new(big.Float).SetInt(amount)
	product.Mul(product, big.NewFloat(factor))
	out, acc := product.Int(nil)
	if acc == big.Below {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// divFloatFloor computes floor(amount / divisor) for non-negative inputs.
// Used for amounts distributed.
func divFloatFloor(amount *big.Int, divisor float64) *big.Int {
	if divisor <= 0 {
		return big.NewInt(0)
	}
	quotient := new(big.Float).SetInt(amount)
	quotient.Quo(quotient, big.NewFloat(divisor))
	out, _ := quotient.Int(nil)
	return out
}

// bigToFloat converts an amount to float64 for rate arithmetic. Rates follow
// the original double-precision semantics; amounts stay integral.
func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
