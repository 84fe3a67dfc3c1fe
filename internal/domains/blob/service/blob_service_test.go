package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookchain-backend/internal/domains/blob/model"
	"bookchain-backend/internal/infrastructure/storage"
)

// fakeBlobRepo keeps blob metadata in memory, referenced hashes aside
type fakeBlobRepo struct {
	rows       map[string]*model.CachedBlob
	referenced map[string]bool
}

func newFakeBlobRepo() *fakeBlobRepo {
	return &fakeBlobRepo{
		rows:       map[string]*model.CachedBlob{},
		referenced: map[string]bool{},
	}
}

func (f *fakeBlobRepo) Upsert(ctx context.Context, blob *model.CachedBlob) (bool, error) {
	if _, ok := f.rows[blob.ContentHash]; ok {
		return false, nil
	}
	cp := *blob
	cp.UploadedAt = time.Now().UTC()
	cp.LastAccessed = cp.UploadedAt
	f.rows[blob.ContentHash] = &cp
	return true, nil
}

func (f *fakeBlobRepo) GetByHash(ctx context.Context, hash string) (*model.CachedBlob, error) {
	r, ok := f.rows[hash]
	if !ok {
		return nil, model.ErrBlobNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeBlobRepo) TouchAccess(ctx context.Context, hash string) error {
	r := f.rows[hash]
	r.AccessCount++
	r.LastAccessed = time.Now().UTC()
	return nil
}

func (f *fakeBlobRepo) EvictionCandidates(ctx context.Context, n int) ([]model.EvictionCandidate, error) {
	var out []model.EvictionCandidate
	for _, r := range f.rows {
		if f.referenced[r.ContentHash] {
			continue
		}
		out = append(out, model.EvictionCandidate{
			ContentHash:  r.ContentHash,
			SizeBytes:    r.SizeBytes,
			AccessCount:  r.AccessCount,
			LastAccessed: r.LastAccessed,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccessCount != out[j].AccessCount {
			return out[i].AccessCount < out[j].AccessCount
		}
		return out[i].LastAccessed.Before(out[j].LastAccessed)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// fakeObjectStore is an in-memory storage.ObjectStore
type fakeObjectStore struct {
	objects   map[string][]byte
	uploads   int
	uploadErr error // returned once, then cleared
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, data []byte, mediaType string) error {
	if f.uploadErr != nil {
		err := f.uploadErr
		f.uploadErr = nil
		return err
	}
	f.uploads++
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp
	return nil
}

func (f *fakeObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func TestPutReturnsContentHash(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	data := []byte("the book body")
	sum := sha256.Sum256(data)

	hash, err := svc.Put(context.Background(), data, model.KindPrimary, "book.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	stored, ok := store.objects["blobs/"+hash]
	require.True(t, ok)
	assert.Equal(t, data, stored)
}

func TestPutIsIdempotent(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	data := []byte("same bytes twice")

	first, err := svc.Put(context.Background(), data, model.KindPrimary, "a.pdf", "application/pdf")
	require.NoError(t, err)
	second, err := svc.Put(context.Background(), data, model.KindPrimary, "b.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.uploads, "duplicate bytes must not be re-uploaded")
	assert.Len(t, repo.rows, 1)
}

func TestPutRetriesAfterFailedUpload(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	data := []byte("bytes that fail to land the first time")
	store.uploadErr = errors.New("connection reset")

	// The metadata row from the failed attempt must not satisfy later Puts
	_, err := svc.Put(context.Background(), data, model.KindPrimary, "a.pdf", "application/pdf")
	require.Error(t, err)

	hash, err := svc.Put(context.Background(), data, model.KindPrimary, "a.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, store.uploads)

	got, _, err := svc.Get(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutRejectsUnknownKind(t *testing.T) {
	svc := NewBlobService(newFakeBlobRepo(), newFakeObjectStore())

	_, err := svc.Put(context.Background(), []byte("x"), "thumbnail", "x.png", "image/png")
	assert.ErrorIs(t, err, model.ErrInvalidKind)
}

func TestGetTouchesAccessMetadata(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	data := []byte("cover bytes")
	hash, err := svc.Put(context.Background(), data, model.KindCover, "cover.png", "image/png")
	require.NoError(t, err)

	got, blob, err := svc.Get(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, model.KindCover, blob.Kind)

	_, _, err = svc.Get(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.rows[hash].AccessCount)
}

func TestGetUnknownHash(t *testing.T) {
	svc := NewBlobService(newFakeBlobRepo(), newFakeObjectStore())

	_, _, err := svc.Get(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, model.ErrBlobNotFound)
}

func TestExists(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	hash, err := svc.Put(context.Background(), []byte("here"), model.KindPrimary, "x.pdf", "application/pdf")
	require.NoError(t, err)

	ok, err := svc.Exists(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// Exists must not count as an access
	assert.Equal(t, int64(0), repo.rows[hash].AccessCount)

	ok, err = svc.Exists(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvictionCandidatesRanking(t *testing.T) {
	repo := newFakeBlobRepo()
	store := newFakeObjectStore()
	svc := NewBlobService(repo, store)

	cold, err := svc.Put(context.Background(), []byte("cold"), model.KindPrimary, "c.pdf", "application/pdf")
	require.NoError(t, err)
	warm, err := svc.Put(context.Background(), []byte("warm"), model.KindPrimary, "w.pdf", "application/pdf")
	require.NoError(t, err)
	active, err := svc.Put(context.Background(), []byte("active"), model.KindPrimary, "a.pdf", "application/pdf")
	require.NoError(t, err)

	_, _, err = svc.Get(context.Background(), warm)
	require.NoError(t, err)
	repo.referenced[active] = true

	candidates, err := svc.EvictionCandidates(context.Background(), 10)
	require.NoError(t, err)

	// Referenced blobs never appear; coldest first
	require.Len(t, candidates, 2)
	assert.Equal(t, cold, candidates[0].ContentHash)
	assert.Equal(t, warm, candidates[1].ContentHash)
}
