package ledger

import "errors"

// =====================================================
// LEDGER OPERATIONS
// =====================================================
// Names of the contract operations the settlement engine submits. The
// ledger's execution semantics are a black box; these are just routing keys.
const (
	OpAddBook      = "addBook"
	OpPurchaseBook = "purchaseBook"
	OpPayRoyalty   = "payRoyalty"
	OpSetPrice     = "setPrice"
)

// =====================================================
// LEDGER EVENTS
// =====================================================
const (
	EventBookAdded     = "BookAdded"
	EventBookPurchased = "BookPurchased"
	EventRoyaltyPaid   = "RoyaltyPaid"
	EventPriceChanged  = "PriceChanged"
)

// =====================================================
// ERRORS
// =====================================================
var (
	// ErrTransient marks node/network failures worth retrying with backoff.
	ErrTransient = errors.New("ledger transient error")

	// ErrUnavailable is surfaced after the retry budget is exhausted.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the transaction was mined but failed execution.
	// Terminal: never retried.
	ErrRejected = errors.New("ledger rejected transaction")

	// ErrNotFound means the node does not know the requested object.
	ErrNotFound = errors.New("not found on ledger")
)

// Receipt is the inclusion result for a submitted transaction
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	Included    bool   `json:"included"`
	Success     bool   `json:"success"`
	BlockHeight int64  `json:"block_height"`
}

// Event is a finalized contract event observed during a sweep
type Event struct {
	Name        string            `json:"name"`
	TxHash      string            `json:"tx_hash"`
	BlockHeight int64             `json:"block_height"`
	LedgerID    int64             `json:"ledger_id"`
	Params      map[string]string `json:"params"`
}
