package dmc

import "errors"

// Every abort surfaces exactly one of these sentinels; the host maps them to
// rejection classes via Class.
var (
	errNilState     = errors.New("dmc engine: state not configured")
	errUnauthorized = errors.New("dmc engine: missing required authority")

	errMemoTooLong     = errors.New("dmc engine: memo has more than 256 bytes")
	errInvalidAmount   = errors.New("dmc engine: amount must be positive")
	errInvalidPledge   = errors.New("dmc engine: pledge amount must not be negative")
	errInvalidPrice    = errors.New("dmc engine: invalid price")
	errSelfOrder       = errors.New("dmc engine: buyer and seller are the same account")
	errInvalidRate     = errors.New("dmc engine: invalid rate")
	errInvalidWeight   = errors.New("dmc engine: invalid new weight")
	errIncreaseTooLow  = errors.New("dmc engine: increase too low")
	errRemainderTooLow = errors.New("dmc engine: the remaining weight is too low")
	errDustAttack      = errors.New("dmc engine: dust attack detected")
	errSoleExitOnly    = errors.New("dmc engine: miner can only redeem all last")
	errInvalidConfig   = errors.New("dmc engine: invalid config value")
	errDuplicateBill   = errors.New("dmc engine: duplicate bill identifier")

	errBillNotFound  = errors.New("dmc engine: no such bill")
	errMakerNotFound = errors.New("dmc engine: no such maker pool")
	errShareNotFound = errors.New("dmc engine: no such pool share")

	errInsufficientFunds = errors.New("dmc engine: insufficient funds")
	errBillOverdrawn     = errors.New("dmc engine: bill unmatched balance overdrawn")
	errPledgeTooSmall    = errors.New("dmc engine: pledge cannot cover payment and deposit")
	errMintCapacity      = errors.New("dmc engine: insufficient staked collateral to mint")

	errBelowBenchmark = errors.New("dmc engine: current stake rate below benchmark stake rate")
	errBelowMinerRate = errors.New("dmc engine: maker share below declared minimum rate")
	errAboveMinerRate = errors.New("dmc engine: exceeding the maximum rate")
	errBenchmarkDrift = errors.New("dmc engine: benchmark stake rate outside allowed drift")
	errRateBelowShare = errors.New("dmc engine: rate does not meet current share limits")

	errServiceTime  = errors.New("dmc engine: invalid service time")
	errBillExpired  = errors.New("dmc engine: service has expired")
	errDepositEpoch = errors.New("dmc engine: deposit expiry below minimum service epoch")
	errRateCooldown = errors.New("dmc engine: rate change interval too short")

	errNegativeStake    = errors.New("dmc engine: negative total staked amount")
	errRateUnbounded    = errors.New("dmc engine: stake rate unbounded with zero minted exposure")
	errNegativeWeight   = errors.New("dmc engine: negative pool weight amount")
	errNegativeDuration = errors.New("dmc engine: negative accrual duration")
)

// Rejection classes reported to callers.
const (
	ClassAuthorization     = "AuthorizationFailure"
	ClassValidation        = "ValidationFailure"
	ClassNotFound          = "NotFound"
	ClassInsufficientFunds = "InsufficientFunds"
	ClassRateViolation     = "RateViolation"
	ClassTimingViolation   = "TimingViolation"
	ClassInvariantGuard    = "InvariantGuard"
)

// Class maps an engine error to its rejection class. Unknown errors are
// treated as invariant guards: they should be unreachable under correct logic.
func Class(err error) string {
	switch {
	case errors.Is(err, errUnauthorized):
		return ClassAuthorization
	case errors.Is(err, errMemoTooLong),
		errors.Is(err, errInvalidAmount),
		errors.Is(err, errInvalidPledge),
		errors.Is(err, errInvalidPrice),
		errors.Is(err, errSelfOrder),
		errors.Is(err, errInvalidRate),
		errors.Is(err, errInvalidWeight),
		errors.Is(err, errIncreaseTooLow),
		errors.Is(err, errRemainderTooLow),
		errors.Is(err, errDustAttack),
		errors.Is(err, errSoleExitOnly),
		errors.Is(err, errInvalidConfig),
		errors.Is(err, errDuplicateBill):
		return ClassValidation
	case errors.Is(err, errBillNotFound),
		errors.Is(err, errMakerNotFound),
		errors.Is(err, errShareNotFound):
		return ClassNotFound
	case errors.Is(err, errInsufficientFunds),
		errors.Is(err, errBillOverdrawn),
		errors.Is(err, errPledgeTooSmall),
		errors.Is(err, errMintCapacity):
		return ClassInsufficientFunds
	case errors.Is(err, errBelowBenchmark),
		errors.Is(err, errBelowMinerRate),
		errors.Is(err, errAboveMinerRate),
		errors.Is(err, errBenchmarkDrift),
		errors.Is(err, errRateBelowShare):
		return ClassRateViolation
	case errors.Is(err, errServiceTime),
		errors.Is(err, errBillExpired),
		errors.Is(err, errDepositEpoch),
		errors.Is(err, errRateCooldown):
		return ClassTimingViolation
	default:
		return ClassInvariantGuard
	}
}
