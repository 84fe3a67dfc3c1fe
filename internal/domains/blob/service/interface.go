package service

import (
	"context"

	"bookchain-backend/internal/domains/blob/model"
)

// BlobService is the content address cache: deduplicated storage keyed by
// content hash, with access tracking for eviction ranking.
type BlobService interface {
	// Put hashes the bytes, stores them if new, and returns the content
	// hash. Idempotent: identical bytes always yield the same hash and a
	// single metadata row.
	Put(ctx context.Context, data []byte, kind, originalName, mediaType string) (string, error)

	// Get returns the stored bytes and bumps access metadata. Fails with
	// model.ErrBlobNotFound when the hash is unknown.
	Get(ctx context.Context, hash string) ([]byte, *model.CachedBlob, error)

	// Exists resolves a content hash without touching access metadata
	Exists(ctx context.Context, hash string) (bool, error)

	// EvictionCandidates ranks the n coldest unreferenced blobs
	EvictionCandidates(ctx context.Context, n int) ([]model.EvictionCandidate, error)
}
