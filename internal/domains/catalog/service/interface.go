package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookchain-backend/internal/domains/catalog/model"
	"bookchain-backend/internal/shared"
)

// CatalogService owns the local listing projection and its ledger binding
type CatalogService interface {
	// CreateListing validates and records a new listing and submits its
	// addBook transaction. The ledger id arrives later, via the sweep.
	CreateListing(ctx context.Context, principal shared.Principal, req model.CreateListingRequest) (*model.Book, error)

	// AssignLedgerID performs the one-time binding after addBook confirms
	AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error

	// ResolveListingConfirmation binds the ledger id to the listing whose
	// addBook transaction is txHash (sweep entry point)
	ResolveListingConfirmation(ctx context.Context, txHash string, ledgerID int64) error

	// RequestPriceUpdate starts a ledger-first price change. The local
	// price is untouched until the PriceChanged event confirms.
	RequestPriceUpdate(ctx context.Context, principal shared.Principal, bookID uuid.UUID, price decimal.Decimal) error

	// ApplyPriceChange moves the pending price into effect (sweep entry)
	ApplyPriceChange(ctx context.Context, txHash string) error

	// RejectPriceChange drops a pending price whose tx failed execution
	RejectPriceChange(ctx context.Context, txHash string) error

	// Deactivate takes a listing off sale
	Deactivate(ctx context.Context, principal shared.Principal, bookID uuid.UUID) error

	// GetBook reads one listing (cached)
	GetBook(ctx context.Context, bookID uuid.UUID) (*model.Book, error)

	// ListBooks pages through listings
	ListBooks(ctx context.Context, activeOnly bool, page, limit int) ([]*model.Book, int, error)
}
