package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"bookchain-backend/internal/domains/blob/model"
	repo "bookchain-backend/internal/domains/blob/repository"
	"bookchain-backend/internal/infrastructure/storage"
	"bookchain-backend/pkg/logger"
)

// objectKeyPrefix namespaces content-addressed objects in the bucket
const objectKeyPrefix = "blobs/"

// =====================================================
// BLOB SERVICE IMPLEMENTATION
// =====================================================
type blobService struct {
	blobRepo repo.BlobRepoInterface
	store    storage.ObjectStore
}

func NewBlobService(blobRepo repo.BlobRepoInterface, store storage.ObjectStore) BlobService {
	return &blobService{
		blobRepo: blobRepo,
		store:    store,
	}
}

// ContentHash is the deduplication key: hex sha256 of the raw bytes
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func objectKey(hash string) string {
	return objectKeyPrefix + hash
}

func (s *blobService) Put(ctx context.Context, data []byte, kind, originalName, mediaType string) (string, error) {
	validKind := false
	for _, k := range model.ValidKinds {
		if k == kind {
			validKind = true
			break
		}
	}
	if !validKind {
		return "", &model.BlobError{
			Code:    model.ErrCodeInvalidKind,
			Message: fmt.Sprintf("Unknown blob kind %q", kind),
			Err:     model.ErrInvalidKind,
		}
	}

	hash := ContentHash(data)

	blob := &model.CachedBlob{
		ContentHash:  hash,
		Kind:         kind,
		OriginalName: originalName,
		SizeBytes:    int64(len(data)),
		MediaType:    mediaType,
	}

	created, err := s.blobRepo.Upsert(ctx, blob)
	if err != nil {
		return "", err
	}

	if !created {
		// The row may outlive a failed upload from an earlier attempt, so
		// dedup only once the object is confirmed present. Otherwise fall
		// through and store it now.
		stored, err := s.store.Exists(ctx, objectKey(hash))
		if err != nil {
			return "", err
		}
		if stored {
			return hash, nil
		}
	}

	if err := s.store.Upload(ctx, objectKey(hash), data, mediaType); err != nil {
		return "", err
	}

	logger.Info("Blob stored", map[string]interface{}{
		"content_hash": hash,
		"kind":         kind,
		"size_bytes":   blob.SizeBytes,
	})

	return hash, nil
}

func (s *blobService) Get(ctx context.Context, hash string) ([]byte, *model.CachedBlob, error) {
	blob, err := s.blobRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, model.ErrBlobNotFound) {
			return nil, nil, model.NewBlobNotFoundError(hash)
		}
		return nil, nil, err
	}

	data, err := s.store.Download(ctx, objectKey(hash))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, model.NewBlobNotFoundError(hash)
		}
		return nil, nil, err
	}

	// Counted per read, after the read succeeds. Best effort: a failed
	// touch must not fail the download.
	if err := s.blobRepo.TouchAccess(ctx, hash); err != nil {
		logger.Error("Failed to touch blob access metadata", err)
	}

	return data, blob, nil
}

func (s *blobService) Exists(ctx context.Context, hash string) (bool, error) {
	_, err := s.blobRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, model.ErrBlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *blobService) EvictionCandidates(ctx context.Context, n int) ([]model.EvictionCandidate, error) {
	return s.blobRepo.EvictionCandidates(ctx, n)
}
