package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/infrastructure/ledger"
	ledgermock "bookchain-backend/internal/infrastructure/ledger/mock"
)

type syncFixture struct {
	svc          SyncService
	syncRepo     *fakeSyncRepo
	ledgerClient *ledgermock.Client
	purchaseSvc  *fakePurchaseSvc
	royaltySvc   *fakeRoyaltySvc
	catalogSvc   *fakeCatalogSvc
	catalogRepo  *fakeCatalogRepo
	resolver     *fakeBuyerResolver
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		syncRepo:     newFakeSyncRepo(),
		ledgerClient: ledgermock.NewClient(),
		purchaseSvc:  newFakePurchaseSvc(),
		royaltySvc:   newFakeRoyaltySvc(),
		catalogSvc:   newFakeCatalogSvc(),
		catalogRepo:  newFakeCatalogRepo(),
		resolver:     &fakeBuyerResolver{byAddr: map[string]uuid.UUID{}},
	}
	f.svc = NewSyncService(f.syncRepo, f.ledgerClient, f.purchaseSvc, f.royaltySvc, f.catalogSvc, f.catalogRepo, f.resolver)
	return f
}

func TestRunSweepUnknownCategory(t *testing.T) {
	f := newSyncFixture()
	_, err := f.svc.RunSweep(context.Background(), "weather")
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
}

func TestRunSweepBooks(t *testing.T) {
	f := newSyncFixture()

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookAdded,
		TxHash:      "0xadd",
		BlockHeight: 5,
		LedgerID:    7,
	})

	result, err := f.svc.RunSweep(context.Background(), model.CategoryBooks)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Events)
	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, int64(1), result.FromBlock)
	assert.Equal(t, int64(5), result.ToBlock)
	assert.Equal(t, int64(7), f.catalogSvc.resolved["0xadd"])

	cursor, err := f.syncRepo.GetCursor(context.Background(), model.CategoryBooks)
	require.NoError(t, err)
	assert.Equal(t, model.StatusIdle, cursor.Status)
	assert.Equal(t, int64(5), cursor.LastSyncedBlock)
}

func TestRunSweepSkipsAlreadySyncedBlocks(t *testing.T) {
	f := newSyncFixture()
	f.syncRepo.cursors[model.CategoryBooks].LastSyncedBlock = 10

	// Event in the already-covered range must not be replayed
	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookAdded,
		TxHash:      "0xold",
		BlockHeight: 8,
		LedgerID:    2,
	})
	f.ledgerClient.SetHeight(12)

	result, err := f.svc.RunSweep(context.Background(), model.CategoryBooks)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Events)
	assert.Empty(t, f.catalogSvc.resolved)

	cursor, _ := f.syncRepo.GetCursor(context.Background(), model.CategoryBooks)
	assert.Equal(t, int64(12), cursor.LastSyncedBlock)
}

func TestRunSweepPurchases(t *testing.T) {
	f := newSyncFixture()

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xbuy",
		BlockHeight: 3,
		LedgerID:    7,
	})

	result, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xbuy"}, f.purchaseSvc.confirmed)
	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, 0, result.Conflicts)
}

func TestRunSweepPurchaseConflictCounted(t *testing.T) {
	f := newSyncFixture()
	f.purchaseSvc.confirmErr["0xlate"] = purchaseModel.NewInconsistencyError("confirmed after abandonment")

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xlate",
		BlockHeight: 4,
		LedgerID:    7,
	})

	result, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 0, result.Reconciled)
}

func TestRunSweepUnknownTxFlagsDuplicate(t *testing.T) {
	f := newSyncFixture()

	buyerID := uuid.New()
	ledgerID := int64(7)
	book := &catalogModel.Book{ID: uuid.New(), LedgerID: &ledgerID}
	f.catalogRepo.books[book.ID] = book
	f.resolver.byAddr["0xbuyer"] = buyerID
	f.purchaseSvc.verified[pairKey(buyerID, book.ID)] = true
	f.purchaseSvc.confirmErr["0xsecond"] = purchaseModel.NewUnknownTransactionError("0xsecond")

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xsecond",
		BlockHeight: 6,
		LedgerID:    ledgerID,
		Params:      map[string]string{"buyer": "0xbuyer"},
	})

	result, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.NoError(t, err)

	// Second on-chain purchase for a verified pair goes to operator review
	assert.Equal(t, []string{"0xsecond"}, f.purchaseSvc.flagged)
	assert.Equal(t, 1, result.Conflicts)
}

func TestRunSweepUnknownTxUnresolvableIsSkipped(t *testing.T) {
	f := newSyncFixture()
	f.purchaseSvc.confirmErr["0xghost"] = purchaseModel.NewUnknownTransactionError("0xghost")

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xghost",
		BlockHeight: 6,
		LedgerID:    99,
		Params:      map[string]string{"buyer": "0xstranger"},
	})

	result, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.NoError(t, err)
	assert.Empty(t, f.purchaseSvc.flagged)
	assert.Equal(t, 0, result.Conflicts)

	// The block still counts as processed
	cursor, _ := f.syncRepo.GetCursor(context.Background(), model.CategoryPurchases)
	assert.Equal(t, int64(6), cursor.LastSyncedBlock)
}

func TestRunSweepPartialFailureKeepsProgress(t *testing.T) {
	f := newSyncFixture()
	f.purchaseSvc.confirmErr["0xbad"] = errors.New("database down")

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xgood",
		BlockHeight: 3,
		LedgerID:    7,
	})
	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventBookPurchased,
		TxHash:      "0xbad",
		BlockHeight: 5,
		LedgerID:    7,
	})

	_, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.Error(t, err)

	// Blocks before the failing event stay processed; the failing block
	// will be re-swept next run
	cursor, _ := f.syncRepo.GetCursor(context.Background(), model.CategoryPurchases)
	assert.Equal(t, int64(4), cursor.LastSyncedBlock)
	assert.Equal(t, model.StatusFailed, cursor.Status)
	require.NotNil(t, cursor.LastError)

	// Next sweep retries only the failed block onward
	delete(f.purchaseSvc.confirmErr, "0xbad")
	result, err := f.svc.RunSweep(context.Background(), model.CategoryPurchases)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Events)
	assert.Equal(t, []string{"0xgood", "0xbad"}, f.purchaseSvc.confirmed)
}

func TestRunSweepHeldCursor(t *testing.T) {
	f := newSyncFixture()
	now := time.Now().UTC()
	f.syncRepo.cursors[model.CategoryBooks].Status = model.StatusRunning
	f.syncRepo.cursors[model.CategoryBooks].StartedAt = &now

	_, err := f.svc.RunSweep(context.Background(), model.CategoryBooks)
	assert.ErrorIs(t, err, model.ErrSweepInProgress)
}

func TestRunSweepStaleCursorTakeover(t *testing.T) {
	f := newSyncFixture()
	stale := time.Now().UTC().Add(-model.StaleRunningThreshold - time.Minute)
	f.syncRepo.cursors[model.CategoryBooks].Status = model.StatusRunning
	f.syncRepo.cursors[model.CategoryBooks].StartedAt = &stale

	// A crashed runner's cursor is taken over after the threshold
	_, err := f.svc.RunSweep(context.Background(), model.CategoryBooks)
	require.NoError(t, err)

	cursor, _ := f.syncRepo.GetCursor(context.Background(), model.CategoryBooks)
	assert.Equal(t, model.StatusIdle, cursor.Status)
}

func TestRunSweepRoyaltyEvents(t *testing.T) {
	f := newSyncFixture()

	f.ledgerClient.EmitEvent(ledger.Event{
		Name:        ledger.EventRoyaltyPaid,
		TxHash:      "0xpay",
		BlockHeight: 9,
	})
	f.royaltySvc.reconConfirmed = 2

	result, err := f.svc.RunSweep(context.Background(), model.CategoryRoyalties)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xpay"}, f.royaltySvc.payoutsConfirmed)
	// Event dispatch plus the submitted-payout receipt poll
	assert.Equal(t, 3, result.Reconciled)
}

func TestReconcilePriceChanges(t *testing.T) {
	f := newSyncFixture()

	addPending := func(txHash string) *catalogModel.Book {
		price := decimal.RequireFromString("12.00")
		b := &catalogModel.Book{
			ID:           uuid.New(),
			PendingPrice: &price,
			PriceTxHash:  &txHash,
		}
		f.catalogRepo.books[b.ID] = b
		return b
	}

	addPending("0xapplied")
	addPending("0xrejected")
	addPending("0xwaiting")

	f.ledgerClient.Mine("0xapplied", 20, true)
	f.ledgerClient.Mine("0xrejected", 21, false)

	result, err := f.svc.RunSweep(context.Background(), model.CategoryBooks)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xapplied"}, f.catalogSvc.applied)
	assert.Equal(t, []string{"0xrejected"}, f.catalogSvc.rejected)
	assert.Equal(t, 2, result.Reconciled)
}

func TestRunAllSkipsHeldCursors(t *testing.T) {
	f := newSyncFixture()
	now := time.Now().UTC()
	f.syncRepo.cursors[model.CategoryPurchases].Status = model.StatusRunning
	f.syncRepo.cursors[model.CategoryPurchases].StartedAt = &now

	results := f.svc.RunAll(context.Background())

	categories := map[string]bool{}
	for _, r := range results {
		categories[r.Category] = true
	}
	assert.True(t, categories[model.CategoryBooks])
	assert.True(t, categories[model.CategoryRoyalties])
	assert.False(t, categories[model.CategoryPurchases])
}
