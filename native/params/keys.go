package params

// Parameter store keys. Names follow the on-chain configuration table of the
// original deployment so operator tooling carries over unchanged.
const (
	// KeyServiceInterval is the minimum seconds between bill creation and
	// expiry.
	KeyServiceInterval = "serverinter"
	// KeyOrderServiceEpoch is the minimum seconds an order's deposit must
	// remain valid.
	KeyOrderServiceEpoch = "ordsrvepoch"
	// KeyClaimsInterval is the settlement claim interval.
	KeyClaimsInterval = "claiminter"
	// KeyBillClaimsInterval caps how long a bill keeps accruing bonus after
	// creation.
	KeyBillClaimsInterval = "billinter"
	// KeyBenchmarkRate is the global default benchmark stake rate,
	// percent-encoded (200 = 2.0x the price average).
	KeyBenchmarkRate = "bmrate"
	// KeyPenaltyRate is the liquidation penalty percentage.
	KeyPenaltyRate = "penaltyrate"
	// KeyInitialPrice seeds rate valuation before any trade prices exist.
	KeyInitialPrice = "initalprice"
)

// Defaults applied when a key has never been set.
const (
	DefaultServiceInterval    uint64 = 600
	DefaultOrderServiceEpoch  uint64 = 3600
	DefaultClaimsInterval     uint64 = 86_400
	DefaultBillClaimsInterval uint64 = 259_200
	DefaultBenchmarkRate      uint64 = 200
	DefaultPenaltyRate        uint64 = 10
	DefaultInitialPrice       uint64 = 25
)

// Default returns the built-in default for a known key, or zero for unknown
// keys.
func Default(key string) uint64 {
	switch key {
	case KeyServiceInterval:
		return DefaultServiceInterval
	case KeyOrderServiceEpoch:
		return DefaultOrderServiceEpoch
	case KeyClaimsInterval:
		return DefaultClaimsInterval
	case KeyBillClaimsInterval:
		return DefaultBillClaimsInterval
	case KeyBenchmarkRate:
		return DefaultBenchmarkRate
	case KeyPenaltyRate:
		return DefaultPenaltyRate
	case KeyInitialPrice:
		return DefaultInitialPrice
	}
	return 0
}
