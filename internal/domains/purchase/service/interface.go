package service

import (
	"context"

	"github.com/google/uuid"

	"bookchain-backend/internal/domains/purchase/model"
)

// PurchaseService is the settlement engine's reconciler: it owns the
// NONE -> PENDING -> VERIFIED / ABANDONED state machine per (buyer, book).
type PurchaseService interface {
	// InitiatePurchase records a PENDING purchase and submits the ledger
	// transaction. Idempotent at the boundary: a live PENDING record for
	// the pair is returned as-is instead of submitting a second time, a
	// VERIFIED one fails with ErrDuplicatePurchase.
	InitiatePurchase(ctx context.Context, buyerID uuid.UUID, buyerAddr string, bookID uuid.UUID) (*model.PurchaseRecord, error)

	// ConfirmPurchase promotes the PENDING record matching txHash to
	// VERIFIED and, in the same database transaction, resolves the royalty
	// decision (derive a record or mark the purchase royalty-exempt) and
	// bumps the book's sale counter. Confirming an already-VERIFIED hash is
	// a no-op.
	ConfirmPurchase(ctx context.Context, txHash string, blockHeight int64) (*model.PurchaseRecord, error)

	// Abandon moves a PENDING purchase to ABANDONED
	Abandon(ctx context.Context, txHash string, reason string) error

	// ReapExpired settles PENDING purchases older than the inclusion
	// timeout: confirmed ones are verified, rejected or unmined ones are
	// abandoned. Returns (confirmed, abandoned).
	ReapExpired(ctx context.Context, limit int) (int, int, error)

	// FlagDuplicateConfirmation records an operator-review conflict when the
	// ledger reports a second confirmed transaction for a pair that is
	// already VERIFIED. Never resolves it automatically.
	FlagDuplicateConfirmation(ctx context.Context, buyerID, bookID uuid.UUID, txHash string) error

	// ListByBuyer returns a buyer's purchase history
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*model.PurchaseRecord, int, error)

	// HasVerifiedPurchase gates content downloads
	HasVerifiedPurchase(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error)
}
