package repository

import (
	"context"

	"bookchain-backend/internal/domains/blob/model"
)

// =====================================================
// BLOB REPOSITORY INTERFACE
// =====================================================
type BlobRepoInterface interface {
	// Upsert inserts blob metadata, a no-op when the hash already exists.
	// Returns true when a new row was created.
	Upsert(ctx context.Context, blob *model.CachedBlob) (bool, error)

	// GetByHash returns the metadata row for a content hash
	GetByHash(ctx context.Context, hash string) (*model.CachedBlob, error)

	// TouchAccess bumps access_count and last_accessed for a read. Both are
	// monotonically non-decreasing; concurrent touches may interleave in any
	// order.
	TouchAccess(ctx context.Context, hash string) error

	// EvictionCandidates ranks the n coldest blobs (lowest access count,
	// then least recently accessed) that no active book references.
	// Ranking only — deletion is someone else's decision.
	EvictionCandidates(ctx context.Context, n int) ([]model.EvictionCandidate, error)
}
