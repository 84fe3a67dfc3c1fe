package repository

import (
	"context"

	"bookchain-backend/internal/domains/sync/model"
)

// SyncRepoInterface persists per-category sweep cursors
type SyncRepoInterface interface {
	// EnsureCursors seeds a row per known category if absent
	EnsureCursors(ctx context.Context) error

	GetCursor(ctx context.Context, category string) (*model.SyncCursor, error)
	ListCursors(ctx context.Context) ([]*model.SyncCursor, error)

	// AcquireSweep flips the cursor to running and returns it. Returns
	// model.ErrSweepInProgress when another live sweep holds it; a stale
	// running cursor is taken over.
	AcquireSweep(ctx context.Context, category string) (*model.SyncCursor, error)

	// AdvanceBlock moves last_synced_block forward. Values at or below the
	// current position are ignored so the cursor stays monotonic.
	AdvanceBlock(ctx context.Context, category string, block int64) error

	// CompleteSweep releases the cursor as idle
	CompleteSweep(ctx context.Context, category string) error

	// FailSweep releases the cursor as failed, recording the error text
	FailSweep(ctx context.Context, category string, cause string) error
}
