package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// BOOK ENTITY
// =====================================================
// Local queryable projection of a listing. The ledger identifier is assigned
// exactly once, after the addBook transaction confirms, and never changes.
type Book struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`

	// Pricing. RoyaltyPercentage is fixed at creation; changing it means a
	// new ledger transaction, not a local edit.
	Price             decimal.Decimal `json:"price" db:"price"`
	RoyaltyPercentage decimal.Decimal `json:"royalty_percentage" db:"royalty_percentage"`

	// Content addresses in the blob store
	PDFHash   string `json:"pdf_hash" db:"pdf_hash"`
	CoverHash string `json:"cover_hash" db:"cover_hash"`

	// Ledger binding
	LedgerID     *int64  `json:"ledger_id,omitempty" db:"ledger_id"`
	SubmitTxHash *string `json:"submit_tx_hash,omitempty" db:"submit_tx_hash"`

	// Ledger-first price change in flight. Local price moves only when the
	// PriceChanged event confirms.
	PendingPrice *decimal.Decimal `json:"pending_price,omitempty" db:"pending_price"`
	PriceTxHash  *string          `json:"price_tx_hash,omitempty" db:"price_tx_hash"`

	// Ownership: at least one of author/seller must be set
	AuthorID *uuid.UUID `json:"author_id,omitempty" db:"author_id"`
	SellerID *uuid.UUID `json:"seller_id,omitempty" db:"seller_id"`

	IsActive   bool `json:"is_active" db:"is_active"`
	TotalSales int  `json:"total_sales" db:"total_sales"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasLedgerID checks whether the one-time ledger binding has happened
func (b *Book) HasLedgerID() bool {
	return b.LedgerID != nil
}

// HasAuthor reports whether the book owes royalties at all
func (b *Book) HasAuthor() bool {
	return b.AuthorID != nil
}

// HasPendingPriceChange reports an in-flight ledger-first price update
func (b *Book) HasPendingPriceChange() bool {
	return b.PriceTxHash != nil
}
