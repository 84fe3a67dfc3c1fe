package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	blobModel "bookchain-backend/internal/domains/blob/model"
	"bookchain-backend/internal/domains/catalog/model"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
)

// =====================================================
// IN-MEMORY FAKES
// =====================================================

type fakeCatalogRepo struct {
	books     map[uuid.UUID]*model.Book
	purchases *fakePurchaseRepo
	createErr error
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{books: map[uuid.UUID]*model.Book{}}
}

func (f *fakeCatalogRepo) Create(ctx context.Context, book *model.Book) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *book
	f.books[book.ID] = &cp
	return nil
}

func (f *fakeCatalogRepo) SetSubmitTxHash(ctx context.Context, bookID uuid.UUID, txHash string) error {
	b, ok := f.books[bookID]
	if !ok || b.SubmitTxHash != nil {
		return model.ErrBookNotFound
	}
	b.SubmitTxHash = &txHash
	return nil
}

func (f *fakeCatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, model.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeCatalogRepo) GetByLedgerID(ctx context.Context, ledgerID int64) (*model.Book, error) {
	for _, b := range f.books {
		if b.LedgerID != nil && *b.LedgerID == ledgerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, model.ErrBookNotFound
}

func (f *fakeCatalogRepo) GetBySubmitTxHash(ctx context.Context, txHash string) (*model.Book, error) {
	for _, b := range f.books {
		if b.SubmitTxHash != nil && *b.SubmitTxHash == txHash {
			cp := *b
			return &cp, nil
		}
	}
	return nil, model.ErrBookNotFound
}

func (f *fakeCatalogRepo) List(ctx context.Context, activeOnly bool, page, limit int) ([]*model.Book, int, error) {
	var out []*model.Book
	for _, b := range f.books {
		if activeOnly && !b.IsActive {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeCatalogRepo) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	b := f.books[bookID]
	if b.LedgerID != nil {
		return model.ErrAlreadyAssigned
	}
	b.LedgerID = &ledgerID
	return nil
}

func (f *fakeCatalogRepo) SetPendingPrice(ctx context.Context, bookID uuid.UUID, price decimal.Decimal, txHash string) error {
	b := f.books[bookID]
	if b.PriceTxHash != nil {
		return model.ErrPriceChangePending
	}
	// Mirrors the storage-level re-check against in-flight purchases
	if f.purchases != nil && f.purchases.pendingBooks[bookID] {
		return model.ErrPendingPurchases
	}
	b.PendingPrice = &price
	b.PriceTxHash = &txHash
	return nil
}

func (f *fakeCatalogRepo) ApplyPendingPrice(ctx context.Context, txHash string) error {
	for _, b := range f.books {
		if b.PriceTxHash != nil && *b.PriceTxHash == txHash {
			b.Price = *b.PendingPrice
			b.PendingPrice = nil
			b.PriceTxHash = nil
			return nil
		}
	}
	return model.ErrBookNotFound
}

func (f *fakeCatalogRepo) ClearPendingPrice(ctx context.Context, txHash string) error {
	for _, b := range f.books {
		if b.PriceTxHash != nil && *b.PriceTxHash == txHash {
			b.PendingPrice = nil
			b.PriceTxHash = nil
		}
	}
	return nil
}

func (f *fakeCatalogRepo) ListPendingPriceChanges(ctx context.Context, limit int) ([]*model.Book, error) {
	var out []*model.Book
	for _, b := range f.books {
		if b.PriceTxHash != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) SetActive(ctx context.Context, bookID uuid.UUID, active bool) error {
	f.books[bookID].IsActive = active
	return nil
}

func (f *fakeCatalogRepo) IsContentReferenced(ctx context.Context, contentHash string) (bool, error) {
	for _, b := range f.books {
		if b.IsActive && (b.PDFHash == contentHash || b.CoverHash == contentHash) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalogRepo) IncrementSalesWithTx(ctx context.Context, tx pgx.Tx, bookID uuid.UUID) error {
	f.books[bookID].TotalSales++
	return nil
}

// ---------------------------------------------------------------------------

// fakePurchaseRepo only needs the pending gate for price change tests.
// hidePending makes the service-level check miss a purchase the storage
// guard still sees, like one initiated between the two.
type fakePurchaseRepo struct {
	pendingBooks map[uuid.UUID]bool
	hidePending  bool
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{pendingBooks: map[uuid.UUID]bool{}}
}

func (f *fakePurchaseRepo) HasPendingForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	if f.hidePending {
		return false, nil
	}
	return f.pendingBooks[bookID], nil
}

func (f *fakePurchaseRepo) MarkVerifiedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, blockHeight int64) error {
	return nil
}

func (f *fakePurchaseRepo) SetRoyaltyExemptWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	return nil
}

func (f *fakePurchaseRepo) CreatePending(ctx context.Context, p *purchaseModel.PurchaseRecord) error {
	return nil
}

func (f *fakePurchaseRepo) SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error {
	return nil
}

func (f *fakePurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*purchaseModel.PurchaseRecord, error) {
	return nil, purchaseModel.ErrUnknownTransaction
}

func (f *fakePurchaseRepo) GetByTxHash(ctx context.Context, txHash string) (*purchaseModel.PurchaseRecord, error) {
	return nil, purchaseModel.ErrUnknownTransaction
}

func (f *fakePurchaseRepo) GetActiveByPair(ctx context.Context, buyerID, bookID uuid.UUID) (*purchaseModel.PurchaseRecord, error) {
	return nil, nil
}

func (f *fakePurchaseRepo) MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error {
	return nil
}

func (f *fakePurchaseRepo) ListPending(ctx context.Context, limit int) ([]*purchaseModel.PurchaseRecord, error) {
	return nil, nil
}

func (f *fakePurchaseRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*purchaseModel.PurchaseRecord, error) {
	return nil, nil
}

func (f *fakePurchaseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*purchaseModel.PurchaseRecord, int, error) {
	return nil, 0, nil
}

func (f *fakePurchaseRepo) HasVerified(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakePurchaseRepo) RecordConflict(ctx context.Context, conflict *purchaseModel.PurchaseConflict) error {
	return nil
}

// ---------------------------------------------------------------------------

// fakeBlobSvc answers existence checks from a set of known hashes
type fakeBlobSvc struct {
	known map[string]bool
}

func newFakeBlobSvc(hashes ...string) *fakeBlobSvc {
	f := &fakeBlobSvc{known: map[string]bool{}}
	for _, h := range hashes {
		f.known[h] = true
	}
	return f
}

func (f *fakeBlobSvc) Put(ctx context.Context, data []byte, kind, originalName, mediaType string) (string, error) {
	return "", nil
}

func (f *fakeBlobSvc) Get(ctx context.Context, hash string) ([]byte, *blobModel.CachedBlob, error) {
	return nil, nil, blobModel.ErrBlobNotFound
}

func (f *fakeBlobSvc) Exists(ctx context.Context, hash string) (bool, error) {
	return f.known[hash], nil
}

func (f *fakeBlobSvc) EvictionCandidates(ctx context.Context, n int) ([]blobModel.EvictionCandidate, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------

// fakeCache is a map-backed pkg/cache.Cache
type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
