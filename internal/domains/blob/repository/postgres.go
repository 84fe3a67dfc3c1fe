package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookchain-backend/internal/domains/blob/model"
)

// =====================================================
// BLOB REPOSITORY IMPLEMENTATION
// =====================================================
type blobRepository struct {
	pool *pgxpool.Pool
}

func NewBlobRepository(pool *pgxpool.Pool) BlobRepoInterface {
	return &blobRepository{pool: pool}
}

func (r *blobRepository) Upsert(ctx context.Context, blob *model.CachedBlob) (bool, error) {
	// content_hash is the primary key; a re-put of identical bytes leaves
	// the existing row (and its access stats) untouched.
	query := `
		INSERT INTO cached_blobs (
			content_hash, kind, original_name, size_bytes, media_type
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (content_hash) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		blob.ContentHash,
		blob.Kind,
		blob.OriginalName,
		blob.SizeBytes,
		blob.MediaType,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert blob: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *blobRepository) GetByHash(ctx context.Context, hash string) (*model.CachedBlob, error) {
	query := `
		SELECT content_hash, kind, original_name, size_bytes, media_type,
			uploaded_at, last_accessed, access_count
		FROM cached_blobs
		WHERE content_hash = $1
	`

	var b model.CachedBlob
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&b.ContentHash,
		&b.Kind,
		&b.OriginalName,
		&b.SizeBytes,
		&b.MediaType,
		&b.UploadedAt,
		&b.LastAccessed,
		&b.AccessCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return &b, nil
}

func (r *blobRepository) TouchAccess(ctx context.Context, hash string) error {
	// Single atomic UPDATE: concurrent readers each add one, and
	// GREATEST keeps last_accessed from moving backwards under clock skew.
	query := `
		UPDATE cached_blobs
		SET access_count = access_count + 1,
			last_accessed = GREATEST(last_accessed, NOW())
		WHERE content_hash = $1
	`

	result, err := r.pool.Exec(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("failed to touch blob access: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrBlobNotFound
	}

	return nil
}

func (r *blobRepository) EvictionCandidates(ctx context.Context, n int) ([]model.EvictionCandidate, error) {
	if n < 1 {
		n = 10
	}

	// Anti-join against active listings: a hash still referenced by an
	// active book never ranks, regardless of how cold it is.
	query := `
		SELECT cb.content_hash, cb.size_bytes, cb.access_count, cb.last_accessed
		FROM cached_blobs cb
		WHERE NOT EXISTS (
			SELECT 1 FROM books b
			WHERE b.is_active = TRUE
			  AND (b.pdf_hash = cb.content_hash OR b.cover_hash = cb.content_hash)
		)
		ORDER BY cb.access_count ASC, cb.last_accessed ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to rank eviction candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.EvictionCandidate
	for rows.Next() {
		var c model.EvictionCandidate
		if err := rows.Scan(&c.ContentHash, &c.SizeBytes, &c.AccessCount, &c.LastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan eviction candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
