package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// PAYOUT STATUS
// =====================================================
// The royalty's own payout transaction has its own pending -> paid life,
// independent of the purchase that derived it.
const (
	PayoutStatusUnpaid    = "unpaid"
	PayoutStatusSubmitted = "submitted"
	PayoutStatusPaid      = "paid"
)

var ValidPayoutStatuses = []string{
	PayoutStatusUnpaid,
	PayoutStatusSubmitted,
	PayoutStatusPaid,
}

// =====================================================
// ROYALTY RECORD ENTITY
// =====================================================
// One derived obligation per verified purchase of an authored book. Created
// only inside the purchase-confirmation transaction, never independently.
type RoyaltyRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	AuthorID   uuid.UUID `json:"author_id" db:"author_id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	PurchaseID uuid.UUID `json:"purchase_id" db:"purchase_id"`

	// Amount = price_paid * royalty% / 100, banker's rounding to cents.
	Amount decimal.Decimal `json:"amount" db:"amount"`

	// Payout tracking
	PayoutTxHash *string `json:"payout_tx_hash,omitempty" db:"payout_tx_hash"`
	PayoutStatus string  `json:"payout_status" db:"payout_status"`
	BlockHeight  *int64  `json:"block_height,omitempty" db:"block_height"`
	PaidAt       *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsPaid checks whether the payout confirmed on the ledger
func (r *RoyaltyRecord) IsPaid() bool {
	return r.PayoutStatus == PayoutStatusPaid
}

// =====================================================
// AUTHOR EARNINGS SUMMARY
// =====================================================
type AuthorEarnings struct {
	AuthorID    uuid.UUID       `json:"author_id"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	SaleCount   int             `json:"sale_count"`
}
