package model

// =====================================================
// PURCHASE LIFECYCLE STATES
// =====================================================
// NONE -> PENDING -> VERIFIED (terminal)
//              \--> ABANDONED (terminal, re-purchasable)
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusAbandoned = "abandoned"
)

var ValidStatuses = []string{
	StatusPending,
	StatusVerified,
	StatusAbandoned,
}

// =====================================================
// ABANDON REASONS
// =====================================================
const (
	AbandonReasonTimeout  = "timeout"
	AbandonReasonRejected = "ledger_rejected"
	AbandonReasonManual   = "manual"
)

// PendingTimeoutMinutes is how long a PENDING purchase may wait for
// on-chain inclusion before the timeout sweep abandons it.
const PendingTimeoutMinutes = 30

// =====================================================
// ERROR CODES
// =====================================================
const (
	ErrCodeBookNotFound       = "PUR001"
	ErrCodeBookInactive       = "PUR002"
	ErrCodeDuplicatePurchase  = "PUR003"
	ErrCodeUnknownTransaction = "PUR004"
	ErrCodeLedgerUnavailable  = "PUR005"
	ErrCodeLedgerRejected     = "PUR006"
	ErrCodeNotPending         = "PUR007"
	ErrCodeInconsistency      = "PUR008"
)
