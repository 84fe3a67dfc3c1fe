package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
	royaltyModel "bookchain-backend/internal/domains/royalty/model"
	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/shared"
)

// =====================================================
// CURSOR STORE FAKE
// =====================================================

type fakeSyncRepo struct {
	cursors map[string]*model.SyncCursor
}

func newFakeSyncRepo() *fakeSyncRepo {
	f := &fakeSyncRepo{cursors: map[string]*model.SyncCursor{}}
	for _, category := range model.Categories {
		f.cursors[category] = &model.SyncCursor{
			Category: category,
			Status:   model.StatusIdle,
		}
	}
	return f
}

func (f *fakeSyncRepo) EnsureCursors(ctx context.Context) error { return nil }

func (f *fakeSyncRepo) GetCursor(ctx context.Context, category string) (*model.SyncCursor, error) {
	cp := *f.cursors[category]
	return &cp, nil
}

func (f *fakeSyncRepo) ListCursors(ctx context.Context) ([]*model.SyncCursor, error) {
	var out []*model.SyncCursor
	for _, category := range model.Categories {
		cp := *f.cursors[category]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeSyncRepo) AcquireSweep(ctx context.Context, category string) (*model.SyncCursor, error) {
	c := f.cursors[category]
	if c.Status == model.StatusRunning && !c.IsStale() {
		return nil, model.ErrSweepInProgress
	}
	now := time.Now().UTC()
	c.Status = model.StatusRunning
	c.StartedAt = &now
	cp := *c
	return &cp, nil
}

func (f *fakeSyncRepo) AdvanceBlock(ctx context.Context, category string, block int64) error {
	c := f.cursors[category]
	if block > c.LastSyncedBlock {
		c.LastSyncedBlock = block
	}
	return nil
}

func (f *fakeSyncRepo) CompleteSweep(ctx context.Context, category string) error {
	c := f.cursors[category]
	c.Status = model.StatusIdle
	c.LastError = nil
	return nil
}

func (f *fakeSyncRepo) FailSweep(ctx context.Context, category string, cause string) error {
	c := f.cursors[category]
	c.Status = model.StatusFailed
	c.LastError = &cause
	return nil
}

// =====================================================
// COLLABORATOR FAKES
// =====================================================

type fakePurchaseSvc struct {
	confirmErr map[string]error
	confirmed  []string
	verified   map[string]bool // buyer|book
	flagged    []string
}

func newFakePurchaseSvc() *fakePurchaseSvc {
	return &fakePurchaseSvc{
		confirmErr: map[string]error{},
		verified:   map[string]bool{},
	}
}

func pairKey(buyerID, bookID uuid.UUID) string {
	return buyerID.String() + "|" + bookID.String()
}

func (f *fakePurchaseSvc) InitiatePurchase(ctx context.Context, buyerID uuid.UUID, buyerAddr string, bookID uuid.UUID) (*purchaseModel.PurchaseRecord, error) {
	return nil, nil
}

func (f *fakePurchaseSvc) ConfirmPurchase(ctx context.Context, txHash string, blockHeight int64) (*purchaseModel.PurchaseRecord, error) {
	if err, ok := f.confirmErr[txHash]; ok {
		return nil, err
	}
	f.confirmed = append(f.confirmed, txHash)
	return &purchaseModel.PurchaseRecord{TxHash: txHash, Status: purchaseModel.StatusVerified}, nil
}

func (f *fakePurchaseSvc) Abandon(ctx context.Context, txHash string, reason string) error {
	return nil
}

func (f *fakePurchaseSvc) ReapExpired(ctx context.Context, limit int) (int, int, error) {
	return 0, 0, nil
}

func (f *fakePurchaseSvc) FlagDuplicateConfirmation(ctx context.Context, buyerID, bookID uuid.UUID, txHash string) error {
	f.flagged = append(f.flagged, txHash)
	return nil
}

func (f *fakePurchaseSvc) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*purchaseModel.PurchaseRecord, int, error) {
	return nil, 0, nil
}

func (f *fakePurchaseSvc) HasVerifiedPurchase(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	return f.verified[pairKey(buyerID, bookID)], nil
}

// ---------------------------------------------------------------------------

type fakeRoyaltySvc struct {
	payoutErr        map[string]error
	payoutsConfirmed []string
	reconConfirmed   int
	reconRejected    int
}

func newFakeRoyaltySvc() *fakeRoyaltySvc {
	return &fakeRoyaltySvc{payoutErr: map[string]error{}}
}

func (f *fakeRoyaltySvc) Derive(purchase *purchaseModel.PurchaseRecord, book *catalogModel.Book) *royaltyModel.RoyaltyRecord {
	return nil
}

func (f *fakeRoyaltySvc) SubmitPendingPayouts(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

func (f *fakeRoyaltySvc) ConfirmPayout(ctx context.Context, txHash string, blockHeight int64) error {
	if err, ok := f.payoutErr[txHash]; ok {
		return err
	}
	f.payoutsConfirmed = append(f.payoutsConfirmed, txHash)
	return nil
}

func (f *fakeRoyaltySvc) RejectPayout(ctx context.Context, txHash string) error {
	return nil
}

func (f *fakeRoyaltySvc) ReconcileSubmitted(ctx context.Context, limit int) (int, int, error) {
	return f.reconConfirmed, f.reconRejected, nil
}

func (f *fakeRoyaltySvc) ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*royaltyModel.RoyaltyRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRoyaltySvc) GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*royaltyModel.AuthorEarnings, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------

type fakeCatalogSvc struct {
	resolved map[string]int64 // txHash -> ledgerID
	applied  []string
	rejected []string
}

func newFakeCatalogSvc() *fakeCatalogSvc {
	return &fakeCatalogSvc{resolved: map[string]int64{}}
}

func (f *fakeCatalogSvc) CreateListing(ctx context.Context, principal shared.Principal, req catalogModel.CreateListingRequest) (*catalogModel.Book, error) {
	return nil, nil
}

func (f *fakeCatalogSvc) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	return nil
}

func (f *fakeCatalogSvc) ResolveListingConfirmation(ctx context.Context, txHash string, ledgerID int64) error {
	f.resolved[txHash] = ledgerID
	return nil
}

func (f *fakeCatalogSvc) RequestPriceUpdate(ctx context.Context, principal shared.Principal, bookID uuid.UUID, price decimal.Decimal) error {
	return nil
}

func (f *fakeCatalogSvc) ApplyPriceChange(ctx context.Context, txHash string) error {
	f.applied = append(f.applied, txHash)
	return nil
}

func (f *fakeCatalogSvc) RejectPriceChange(ctx context.Context, txHash string) error {
	f.rejected = append(f.rejected, txHash)
	return nil
}

func (f *fakeCatalogSvc) Deactivate(ctx context.Context, principal shared.Principal, bookID uuid.UUID) error {
	return nil
}

func (f *fakeCatalogSvc) GetBook(ctx context.Context, bookID uuid.UUID) (*catalogModel.Book, error) {
	return nil, nil
}

func (f *fakeCatalogSvc) ListBooks(ctx context.Context, activeOnly bool, page, limit int) ([]*catalogModel.Book, int, error) {
	return nil, 0, nil
}

// ---------------------------------------------------------------------------

type fakeCatalogRepo struct {
	books map[uuid.UUID]*catalogModel.Book
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{books: map[uuid.UUID]*catalogModel.Book{}}
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
	return nil, catalogModel.ErrBookNotFound
}

func (f *fakeCatalogRepo) List(ctx context.Context, activeOnly bool, page, limit int) ([]*catalogModel.Book, int, error) {
	return nil, 0, nil
}

func (f *fakeCatalogRepo) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	return nil
}

func (f *fakeCatalogRepo) SetPendingPrice(ctx context.Context, bookID uuid.UUID, price decimal.Decimal, txHash string) error {
	b := f.books[bookID]
	b.PendingPrice = &price
	b.PriceTxHash = &txHash
	return nil
}

func (f *fakeCatalogRepo) ApplyPendingPrice(ctx context.Context, txHash string) error { return nil }

func (f *fakeCatalogRepo) ClearPendingPrice(ctx context.Context, txHash string) error { return nil }

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
	return nil
}

func (f *fakeCatalogRepo) IsContentReferenced(ctx context.Context, contentHash string) (bool, error) {
	return false, nil
}

func (f *fakeCatalogRepo) IncrementSalesWithTx(ctx context.Context, tx pgx.Tx, bookID uuid.UUID) error {
	return nil
}

// ---------------------------------------------------------------------------

type fakeBuyerResolver struct {
	byAddr map[string]uuid.UUID
}

func (f *fakeBuyerResolver) ResolveLedgerAddress(ctx context.Context, addr string) (uuid.UUID, error) {
	id, ok := f.byAddr[addr]
	if !ok {
		return uuid.Nil, errors.New("no account for ledger address")
	}
	return id, nil
}
