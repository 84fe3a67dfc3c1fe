package model

import (
	"errors"
	"fmt"
	"time"
)

// =====================================================
// BLOB KINDS
// =====================================================
const (
	KindPrimary = "primary" // book content (pdf)
	KindCover   = "cover"   // cover image
)

var ValidKinds = []string{KindPrimary, KindCover}

// =====================================================
// CACHED BLOB ENTITY
// =====================================================
// One row per distinct content hash. The hash is the primary key, so
// identical bytes are stored exactly once no matter how many books
// reference them.
type CachedBlob struct {
	ContentHash  string    `json:"content_hash" db:"content_hash"`
	Kind         string    `json:"kind" db:"kind"`
	OriginalName string    `json:"original_name" db:"original_name"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	MediaType    string    `json:"media_type" db:"media_type"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
	LastAccessed time.Time `json:"last_accessed" db:"last_accessed"`
	AccessCount  int64     `json:"access_count" db:"access_count"`
}

// EvictionCandidate is a ranked entry from the cold-blob scan
type EvictionCandidate struct {
	ContentHash  string    `json:"content_hash"`
	SizeBytes    int64     `json:"size_bytes"`
	AccessCount  int64     `json:"access_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// =====================================================
// ERRORS
// =====================================================
const (
	ErrCodeBlobNotFound = "BLB001"
	ErrCodeInvalidKind  = "BLB002"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKind  = errors.New("invalid blob kind")
)

type BlobError struct {
	Code    string
	Message string
	Err     error
}

func (e *BlobError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

func NewBlobNotFoundError(hash string) *BlobError {
	return &BlobError{
		Code:    ErrCodeBlobNotFound,
		Message: fmt.Sprintf("No blob stored under hash %s", hash),
		Err:     ErrBlobNotFound,
	}
}
