package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// PURCHASE RECORD ENTITY
// =====================================================
// One row per confirmed-or-in-flight purchase. Append-only: VERIFIED and
// ABANDONED rows are never deleted, they are the audit trail.
type PurchaseRecord struct {
	ID      uuid.UUID `json:"id" db:"id"`
	BuyerID uuid.UUID `json:"buyer_id" db:"buyer_id"`
	BookID  uuid.UUID `json:"book_id" db:"book_id"`

	// PricePaid is copied from the book at initiation time. It is never
	// recomputed, even if the listing price changes later.
	PricePaid decimal.Decimal `json:"price_paid" db:"price_paid"`

	// Ledger tracking
	TxHash      string `json:"tx_hash" db:"tx_hash"`
	Status      string `json:"status" db:"status"`
	BlockHeight *int64 `json:"block_height,omitempty" db:"block_height"`

	// RoyaltyExempt records the permanent "no royalty - no author" decision
	// taken at confirmation time. A VERIFIED row has either this flag set or
	// exactly one royalty row referencing it.
	RoyaltyExempt bool `json:"royalty_exempt" db:"royalty_exempt"`

	AbandonReason *string `json:"abandon_reason,omitempty" db:"abandon_reason"`

	// Timestamps
	InitiatedAt time.Time  `json:"initiated_at" db:"initiated_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPending checks if the purchase is still waiting for ledger confirmation
func (p *PurchaseRecord) IsPending() bool {
	return p.Status == StatusPending
}

// IsVerified checks if the purchase has been confirmed on the ledger
func (p *PurchaseRecord) IsVerified() bool {
	return p.Status == StatusVerified
}

// IsExpired checks if a PENDING purchase has waited past the inclusion timeout
func (p *PurchaseRecord) IsExpired() bool {
	if p.Status != StatusPending {
		return false
	}
	timeout := time.Duration(PendingTimeoutMinutes) * time.Minute
	return time.Since(p.InitiatedAt) > timeout
}

// =====================================================
// PURCHASE CONFLICT ENTITY
// =====================================================
// Operator review queue row. Written when the ledger reports a second
// confirmed transaction for a (buyer, book) pair that already has a
// VERIFIED record. Never resolved automatically; resolved_at is set by
// the operator closing the conflict.
type PurchaseConflict struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PurchaseID *uuid.UUID `json:"purchase_id,omitempty" db:"purchase_id"`
	TxHash     string     `json:"tx_hash" db:"tx_hash"`
	Detail     string     `json:"detail" db:"detail"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
