package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bookchain-backend/internal/domains/catalog/model"
)

// =====================================================
// CATALOG REPOSITORY INTERFACE
// =====================================================
type CatalogRepoInterface interface {
	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// IncrementSalesWithTx bumps the cumulative sale counter inside the
	// purchase-confirmation transaction
	IncrementSalesWithTx(ctx context.Context, tx pgx.Tx, bookID uuid.UUID) error

	// ============================================
	// STANDALONE METHODS
	// ============================================

	// Create inserts a new listing
	Create(ctx context.Context, book *model.Book) error

	// SetSubmitTxHash records the addBook transaction on a listing created
	// ahead of submission
	SetSubmitTxHash(ctx context.Context, bookID uuid.UUID, txHash string) error

	// GetByID gets a book by local id
	GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error)

	// GetByLedgerID gets a book by its ledger-assigned identifier
	GetByLedgerID(ctx context.Context, ledgerID int64) (*model.Book, error)

	// GetBySubmitTxHash finds the listing whose addBook transaction is txHash
	GetBySubmitTxHash(ctx context.Context, txHash string) (*model.Book, error)

	// List returns listings, optionally active-only (paginated)
	List(ctx context.Context, activeOnly bool, page, limit int) ([]*model.Book, int, error)

	// AssignLedgerID performs the one-time ledger binding. Returns
	// model.ErrAlreadyAssigned when the book already carries one.
	AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error

	// SetPendingPrice records an in-flight ledger-first price change
	SetPendingPrice(ctx context.Context, bookID uuid.UUID, price decimal.Decimal, txHash string) error

	// ApplyPendingPrice moves pending_price into price once the ledger
	// confirms the change identified by txHash
	ApplyPendingPrice(ctx context.Context, txHash string) error

	// ClearPendingPrice drops a rejected price change without touching price
	ClearPendingPrice(ctx context.Context, txHash string) error

	// ListPendingPriceChanges lists books with an in-flight price change
	ListPendingPriceChanges(ctx context.Context, limit int) ([]*model.Book, error)

	// SetActive flips the listing's active flag
	SetActive(ctx context.Context, bookID uuid.UUID, active bool) error

	// IsContentReferenced reports whether any active book references the
	// content hash (eviction safety check)
	IsContentReferenced(ctx context.Context, contentHash string) (bool, error)
}
