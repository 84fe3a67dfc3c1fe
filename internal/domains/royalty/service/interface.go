package service

import (
	"context"

	"github.com/google/uuid"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
	"bookchain-backend/internal/domains/royalty/model"
)

// RoyaltyService derives and settles author royalty obligations
type RoyaltyService interface {
	// Derive computes the obligation for a verified purchase. Pure: uses the
	// purchase's copied price and the book's royalty terms as they stand at
	// confirmation. Returns nil when the book has no author — that decision
	// is permanent and must be recorded by the caller.
	Derive(purchase *purchaseModel.PurchaseRecord, book *catalogModel.Book) *model.RoyaltyRecord

	// SubmitPendingPayouts submits payRoyalty transactions for unpaid
	// royalties, up to limit. Returns how many were submitted.
	SubmitPendingPayouts(ctx context.Context, limit int) (int, error)

	// ConfirmPayout marks a submitted payout paid at a block height
	ConfirmPayout(ctx context.Context, txHash string, blockHeight int64) error

	// RejectPayout resets a rejected payout for later resubmission
	RejectPayout(ctx context.Context, txHash string) error

	// ReconcileSubmitted polls receipts for submitted payouts, marking each
	// paid or resetting it. Covers payouts whose RoyaltyPaid event the sweep
	// missed. Returns (confirmed, rejected).
	ReconcileSubmitted(ctx context.Context, limit int) (int, int, error)

	// ListByAuthor returns an author's royalty history
	ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*model.RoyaltyRecord, int, error)

	// GetAuthorEarnings returns an author's aggregate totals
	GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*model.AuthorEarnings, error)
}
