package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	"bookchain-backend/internal/domains/purchase/model"
	royaltyModel "bookchain-backend/internal/domains/royalty/model"
)

// =====================================================
// IN-MEMORY FAKES
// =====================================================
// The confirmation path runs inside a database transaction in production.
// These fakes apply writes directly; atomicity itself is covered by the
// repository layer, the service tests cover ordering and state decisions.

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeTx struct{ pgx.Tx }

type fakeTxManager struct {
	begun     int
	committed int
	rolled    int
}

func (m *fakeTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	m.begun++
	return fakeTx{}, nil
}

func (m *fakeTxManager) CommitTx(ctx context.Context, tx pgx.Tx) error {
	m.committed++
	return nil
}

func (m *fakeTxManager) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	m.rolled++
	return nil
}

// ---------------------------------------------------------------------------

type fakePurchaseRepo struct {
	rows      map[uuid.UUID]*model.PurchaseRecord
	conflicts []*model.PurchaseConflict
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{rows: map[uuid.UUID]*model.PurchaseRecord{}}
}

func (f *fakePurchaseRepo) CreatePending(ctx context.Context, p *model.PurchaseRecord) error {
	for _, r := range f.rows {
		if r.BuyerID == p.BuyerID && r.BookID == p.BookID && r.Status != model.StatusAbandoned {
			return model.ErrDuplicatePurchase
		}
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePurchaseRepo) SetTxHash(ctx context.Context, id uuid.UUID, txHash string) error {
	f.rows[id].TxHash = txHash
	return nil
}

func (f *fakePurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRecord, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, model.ErrUnknownTransaction
	}
	cp := *r
	return &cp, nil
}

func (f *fakePurchaseRepo) GetByTxHash(ctx context.Context, txHash string) (*model.PurchaseRecord, error) {
	for _, r := range f.rows {
		if r.TxHash == txHash && txHash != "" {
			cp := *r
			return &cp, nil
		}
	}
	return nil, model.ErrUnknownTransaction
}

func (f *fakePurchaseRepo) GetActiveByPair(ctx context.Context, buyerID, bookID uuid.UUID) (*model.PurchaseRecord, error) {
	for _, r := range f.rows {
		if r.BuyerID == buyerID && r.BookID == bookID && r.Status != model.StatusAbandoned {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePurchaseRepo) MarkVerifiedWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, blockHeight int64) error {
	r := f.rows[id]
	if r.Status != model.StatusPending {
		return model.ErrPurchaseNotPending
	}
	now := time.Now().UTC()
	r.Status = model.StatusVerified
	r.BlockHeight = &blockHeight
	r.VerifiedAt = &now
	return nil
}

func (f *fakePurchaseRepo) SetRoyaltyExemptWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	f.rows[id].RoyaltyExempt = true
	return nil
}

func (f *fakePurchaseRepo) MarkAbandoned(ctx context.Context, id uuid.UUID, reason string) error {
	r := f.rows[id]
	r.Status = model.StatusAbandoned
	r.AbandonReason = &reason
	return nil
}

func (f *fakePurchaseRepo) ListPending(ctx context.Context, limit int) ([]*model.PurchaseRecord, error) {
	var out []*model.PurchaseRecord
	for _, r := range f.rows {
		if r.Status == model.StatusPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*model.PurchaseRecord, error) {
	var out []*model.PurchaseRecord
	for _, r := range f.rows {
		if r.Status == model.StatusPending && r.InitiatedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePurchaseRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*model.PurchaseRecord, int, error) {
	var out []*model.PurchaseRecord
	for _, r := range f.rows {
		if r.BuyerID == buyerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakePurchaseRepo) HasVerified(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	for _, r := range f.rows {
		if r.BuyerID == buyerID && r.BookID == bookID && r.Status == model.StatusVerified {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePurchaseRepo) HasPendingForBook(ctx context.Context, bookID uuid.UUID) (bool, error) {
	for _, r := range f.rows {
		if r.BookID == bookID && r.Status == model.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePurchaseRepo) RecordConflict(ctx context.Context, conflict *model.PurchaseConflict) error {
	f.conflicts = append(f.conflicts, conflict)
	return nil
}

// ---------------------------------------------------------------------------

type fakeCatalogRepo struct {
	books map[uuid.UUID]*catalogModel.Book
	sales map[uuid.UUID]int
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		books: map[uuid.UUID]*catalogModel.Book{},
		sales: map[uuid.UUID]int{},
	}
}

func (f *fakeCatalogRepo) addBook(price string, authorID *uuid.UUID, ledgerID *int64) *catalogModel.Book {
	b := &catalogModel.Book{
		ID:                uuid.New(),
		Title:             "test book",
		Price:             decimal.RequireFromString(price),
		RoyaltyPercentage: decimal.RequireFromString("10"),
		AuthorID:          authorID,
		LedgerID:          ledgerID,
		IsActive:          true,
	}
	f.books[b.ID] = b
	return b
}

func (f *fakeCatalogRepo) Create(ctx context.Context, book *catalogModel.Book) error {
	f.books[book.ID] = book
	return nil
}

func (f *fakeCatalogRepo) SetSubmitTxHash(ctx context.Context, bookID uuid.UUID, txHash string) error {
	f.books[bookID].SubmitTxHash = &txHash
	return nil
}

func (f *fakeCatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*catalogModel.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, catalogModel.ErrBookNotFound
	}
	return b, nil
}

func (f *fakeCatalogRepo) GetByLedgerID(ctx context.Context, ledgerID int64) (*catalogModel.Book, error) {
	for _, b := range f.books {
		if b.LedgerID != nil && *b.LedgerID == ledgerID {
			return b, nil
		}
	}
	return nil, catalogModel.ErrBookNotFound
}

func (f *fakeCatalogRepo) GetBySubmitTxHash(ctx context.Context, txHash string) (*catalogModel.Book, error) {
	for _, b := range f.books {
		if b.SubmitTxHash != nil && *b.SubmitTxHash == txHash {
			return b, nil
		}
	}
	return nil, catalogModel.ErrBookNotFound
}

func (f *fakeCatalogRepo) List(ctx context.Context, activeOnly bool, page, limit int) ([]*catalogModel.Book, int, error) {
	return nil, 0, nil
}

func (f *fakeCatalogRepo) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	b := f.books[bookID]
	if b.LedgerID != nil {
		return catalogModel.ErrAlreadyAssigned
	}
	b.LedgerID = &ledgerID
	return nil
}

func (f *fakeCatalogRepo) SetPendingPrice(ctx context.Context, bookID uuid.UUID, price decimal.Decimal, txHash string) error {
	b := f.books[bookID]
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
		}
	}
	return nil
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

func (f *fakeCatalogRepo) ListPendingPriceChanges(ctx context.Context, limit int) ([]*catalogModel.Book, error) {
	var out []*catalogModel.Book
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
	f.sales[bookID]++
	return nil
}

// ---------------------------------------------------------------------------

type fakeRoyaltyStore struct {
	rows map[uuid.UUID]*royaltyModel.RoyaltyRecord
}

func newFakeRoyaltyStore() *fakeRoyaltyStore {
	return &fakeRoyaltyStore{rows: map[uuid.UUID]*royaltyModel.RoyaltyRecord{}}
}

func (f *fakeRoyaltyStore) CreateWithTx(ctx context.Context, tx pgx.Tx, royalty *royaltyModel.RoyaltyRecord) error {
	for _, r := range f.rows {
		if r.PurchaseID == royalty.PurchaseID {
			return royaltyModel.ErrAlreadyDerived
		}
	}
	f.rows[royalty.ID] = royalty
	return nil
}

func (f *fakeRoyaltyStore) GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) (*royaltyModel.RoyaltyRecord, error) {
	for _, r := range f.rows {
		if r.PurchaseID == purchaseID {
			return r, nil
		}
	}
	return nil, royaltyModel.ErrRoyaltyNotFound
}

func (f *fakeRoyaltyStore) GetByPayoutTxHash(ctx context.Context, txHash string) (*royaltyModel.RoyaltyRecord, error) {
	for _, r := range f.rows {
		if r.PayoutTxHash != nil && *r.PayoutTxHash == txHash {
			return r, nil
		}
	}
	return nil, royaltyModel.ErrRoyaltyNotFound
}

func (f *fakeRoyaltyStore) ListUnpaid(ctx context.Context, limit int) ([]*royaltyModel.RoyaltyRecord, error) {
	return nil, nil
}

func (f *fakeRoyaltyStore) ListSubmitted(ctx context.Context, limit int) ([]*royaltyModel.RoyaltyRecord, error) {
	return nil, nil
}

func (f *fakeRoyaltyStore) MarkPayoutSubmitted(ctx context.Context, id uuid.UUID, txHash string) error {
	r := f.rows[id]
	r.PayoutStatus = royaltyModel.PayoutStatusSubmitted
	r.PayoutTxHash = &txHash
	return nil
}

func (f *fakeRoyaltyStore) MarkPaid(ctx context.Context, id uuid.UUID, blockHeight int64) error {
	r := f.rows[id]
	r.PayoutStatus = royaltyModel.PayoutStatusPaid
	r.BlockHeight = &blockHeight
	return nil
}

func (f *fakeRoyaltyStore) ResetPayout(ctx context.Context, id uuid.UUID) error {
	r := f.rows[id]
	r.PayoutStatus = royaltyModel.PayoutStatusUnpaid
	r.PayoutTxHash = nil
	return nil
}

func (f *fakeRoyaltyStore) ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*royaltyModel.RoyaltyRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRoyaltyStore) GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*royaltyModel.AuthorEarnings, error) {
	return &royaltyModel.AuthorEarnings{AuthorID: authorID}, nil
}
