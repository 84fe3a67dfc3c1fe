package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookchain-backend/internal/domains/royalty/model"
)

// =====================================================
// ROYALTY REPOSITORY INTERFACE
// =====================================================
type RoyaltyRepoInterface interface {
	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// CreateWithTx inserts the derived royalty inside the purchase
	// confirmation transaction. The UNIQUE(purchase_id) constraint makes
	// derivation exactly-once; a duplicate maps to model.ErrAlreadyDerived.
	CreateWithTx(ctx context.Context, tx pgx.Tx, royalty *model.RoyaltyRecord) error

	// ============================================
	// STANDALONE METHODS
	// ============================================

	// GetByPurchaseID gets the royalty derived from a purchase
	GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*model.RoyaltyRecord, error)

	// GetByPayoutTxHash finds the royalty whose payout transaction is txHash
	GetByPayoutTxHash(ctx context.Context, txHash string) (*model.RoyaltyRecord, error)

	// ListUnpaid lists royalties with no payout submitted yet, oldest first
	ListUnpaid(ctx context.Context, limit int) ([]*model.RoyaltyRecord, error)

	// ListSubmitted lists royalties whose payout is awaiting confirmation
	ListSubmitted(ctx context.Context, limit int) ([]*model.RoyaltyRecord, error)

	// MarkPayoutSubmitted records the payout transaction hash
	// (unpaid -> submitted)
	MarkPayoutSubmitted(ctx context.Context, id uuid.UUID, txHash string) error

	// MarkPaid confirms the payout at a block height (submitted -> paid)
	MarkPaid(ctx context.Context, id uuid.UUID, blockHeight int64) error

	// ResetPayout drops a rejected payout back to unpaid for resubmission
	ResetPayout(ctx context.Context, id uuid.UUID) error

	// ListByAuthor lists an author's royalties (paginated)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*model.RoyaltyRecord, int, error)

	// GetAuthorEarnings aggregates an author's totals
	GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*model.AuthorEarnings, error)
}
