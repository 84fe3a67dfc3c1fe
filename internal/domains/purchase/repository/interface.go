package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookchain-backend/internal/domains/purchase/model"
)

// =====================================================
// PURCHASE REPOSITORY INTERFACE
// =====================================================
type PurchaseRepoInterface interface {
	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// MarkVerifiedWithTx promotes a PENDING row to VERIFIED within the
	// provided transaction. Returns model.ErrPurchaseNotPending if the row
	// is no longer pending (lost a race against another confirmation).
	MarkVerifiedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, blockHeight int64) error

	// SetRoyaltyExemptWithTx records the permanent "no royalty" marker
	// within the provided transaction.
	SetRoyaltyExemptWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// ============================================
	// STANDALONE METHODS
	// ============================================

	// CreatePending inserts a new PENDING purchase. Returns
	// model.ErrDuplicatePurchase when the (buyer, book) partial unique
	// index rejects the insert.
	CreatePending(ctx context.Context, p *model.PurchaseRecord) error

	// SetTxHash records the ledger transaction hash on a freshly reserved
	// PENDING row once submission succeeds
	SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error

	// GetByID gets a purchase by primary key
	GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRecord, error)

	// GetByTxHash gets a purchase by its ledger transaction hash
	GetByTxHash(ctx context.Context, txHash string) (*model.PurchaseRecord, error)

	// GetActiveByPair returns the non-ABANDONED record for (buyer, book),
	// or nil when none exists
	GetActiveByPair(ctx context.Context, buyerID, bookID uuid.UUID) (*model.PurchaseRecord, error)

	// MarkAbandoned moves a PENDING purchase to ABANDONED
	MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error

	// ListPending lists in-flight purchases, oldest first
	ListPending(ctx context.Context, limit int) ([]*model.PurchaseRecord, error)

	// ListExpiredPending lists PENDING purchases initiated before cutoff
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*model.PurchaseRecord, error)

	// ListByBuyer lists a buyer's purchase history (paginated)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*model.PurchaseRecord, int, error)

	// HasVerified reports whether the buyer holds a VERIFIED purchase of
	// the book (download gate)
	HasVerified(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error)

	// HasPendingForBook reports whether any buyer has an in-flight purchase
	// of the book (blocks ledger-first price changes)
	HasPendingForBook(ctx context.Context, bookID uuid.UUID) (bool, error)

	// RecordConflict appends a duplicate-confirmation row to the operator
	// review queue
	RecordConflict(ctx context.Context, conflict *model.PurchaseConflict) error
}

// TransactionManager scopes the atomic verify-and-derive unit
type TransactionManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
