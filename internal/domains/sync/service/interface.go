package service

import (
	"context"

	"github.com/google/uuid"

	"bookchain-backend/internal/domains/sync/model"
)

// SyncService reconciles local settlement state against the ledger. Each
// sweep walks the finalized event history for one category from the cursor
// forward and dispatches every event to the owning domain service.
type SyncService interface {
	// RunSweep runs one sweep for a category. Returns
	// model.ErrSweepInProgress when another live sweep holds the cursor.
	RunSweep(ctx context.Context, category string) (*model.SweepResult, error)

	// RunAll sweeps every category in order. Per-category failures are
	// recorded on the cursor and do not stop the remaining categories.
	RunAll(ctx context.Context) []*model.SweepResult

	// Status returns all cursors for the operator endpoint
	Status(ctx context.Context) ([]*model.SyncCursor, error)
}

// BuyerResolver maps a ledger address back to the local account that owns
// it. Used when a purchase event arrives for a transaction this node never
// submitted.
type BuyerResolver interface {
	ResolveLedgerAddress(ctx context.Context, addr string) (uuid.UUID, error)
}
