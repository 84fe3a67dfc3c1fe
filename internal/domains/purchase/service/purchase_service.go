package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	catalogRepo "bookchain-backend/internal/domains/catalog/repository"
	"bookchain-backend/internal/domains/purchase/model"
	repo "bookchain-backend/internal/domains/purchase/repository"
	royaltyRepo "bookchain-backend/internal/domains/royalty/repository"
	royaltyService "bookchain-backend/internal/domains/royalty/service"
	"bookchain-backend/internal/infrastructure/ledger"
	"bookchain-backend/pkg/logger"
)

// =====================================================
// PURCHASE SERVICE IMPLEMENTATION
// =====================================================
type purchaseService struct {
	purchaseRepo repo.PurchaseRepoInterface
	catalogRepo  catalogRepo.CatalogRepoInterface
	royaltyRepo  royaltyRepo.RoyaltyRepoInterface
	royaltySvc   royaltyService.RoyaltyService
	txManager    repo.TransactionManager
	ledgerClient ledger.Client
}

func NewPurchaseService(
	purchaseRepo repo.PurchaseRepoInterface,
	catalogRepo catalogRepo.CatalogRepoInterface,
	royaltyRepo royaltyRepo.RoyaltyRepoInterface,
	royaltySvc royaltyService.RoyaltyService,
	txManager repo.TransactionManager,
	ledgerClient ledger.Client,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		catalogRepo:  catalogRepo,
		royaltyRepo:  royaltyRepo,
		royaltySvc:   royaltySvc,
		txManager:    txManager,
		ledgerClient: ledgerClient,
	}
}

// =====================================================
// INITIATE PURCHASE
// =====================================================

// InitiatePurchase runs the PENDING reservation protocol:
//
//  1. Validate the book (exists, active, ledger-listed).
//  2. Reserve the (buyer, book) pair by inserting the PENDING row with an
//     empty tx hash. The partial unique index is the authoritative duplicate
//     guard, so a concurrent racer fails here atomically.
//  3. Submit purchaseBook to the ledger with no local lock held.
//  4. Record the resulting tx hash on the reservation.
//
// A submission failure abandons the reservation so the buyer can retry.
// Reserving before submitting means a crash can leave a PENDING row with no
// tx hash, but never two ledger transactions for one pair; the timeout reap
// cleans those up.
func (s *purchaseService) InitiatePurchase(ctx context.Context, buyerID uuid.UUID, buyerAddr string, bookID uuid.UUID) (*model.PurchaseRecord, error) {
	// Step 1: validate the book
	book, err := s.catalogRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, model.NewBookNotFoundError(bookID.String())
	}
	if !book.IsActive {
		return nil, model.NewBookInactiveError(bookID.String())
	}
	if !book.HasLedgerID() {
		// Listing exists locally but its addBook tx has not confirmed yet.
		return nil, model.NewBookInactiveError(bookID.String())
	}

	// Step 2: friendly duplicate check before burning a row id. The insert
	// below is the authoritative one.
	if existing, err := s.purchaseRepo.GetActiveByPair(ctx, buyerID, bookID); err != nil {
		return nil, err
	} else if existing != nil {
		if resolved, handled := s.resolveExisting(ctx, existing, buyerID, bookID); handled {
			return resolved.record, resolved.err
		}
	}

	record := &model.PurchaseRecord{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		BookID:      bookID,
		PricePaid:   book.Price,
		Status:      model.StatusPending,
		InitiatedAt: time.Now().UTC(),
	}

	if err := s.purchaseRepo.CreatePending(ctx, record); err != nil {
		if errors.Is(err, model.ErrDuplicatePurchase) {
			// Lost the race. Re-read and resolve the winner's record.
			existing, getErr := s.purchaseRepo.GetActiveByPair(ctx, buyerID, bookID)
			if getErr != nil || existing == nil {
				return nil, model.NewDuplicatePurchaseError(buyerID.String(), bookID.String())
			}
			if resolved, handled := s.resolveExisting(ctx, existing, buyerID, bookID); handled {
				return resolved.record, resolved.err
			}
			return nil, model.NewDuplicatePurchaseError(buyerID.String(), bookID.String())
		}
		return nil, err
	}

	// Step 3: ledger submission, outside any local transaction
	txHash, err := s.ledgerClient.Submit(ctx, ledger.OpPurchaseBook, buyerAddr,
		*book.LedgerID,
		book.Price.String(),
	)
	if err != nil {
		// Free the reservation; abandoned rows never block a retry.
		if abandonErr := s.purchaseRepo.MarkAbandoned(ctx, record.ID, model.AbandonReasonRejected); abandonErr != nil {
			logger.Error("Failed to abandon unsubmitted purchase", abandonErr)
		}
		if errors.Is(err, ledger.ErrUnavailable) {
			return nil, model.NewLedgerUnavailableError(err)
		}
		return nil, err
	}

	if err := s.purchaseRepo.SetTxHash(ctx, record.ID, txHash); err != nil {
		return nil, err
	}
	record.TxHash = txHash

	logger.Info("Purchase submitted to ledger", map[string]interface{}{
		"purchase_id": record.ID.String(),
		"buyer_id":    buyerID.String(),
		"book_id":     bookID.String(),
		"tx_hash":     txHash,
		"price_paid":  record.PricePaid.String(),
	})

	return record, nil
}

type resolution struct {
	record *model.PurchaseRecord
	err    error
}

// resolveExisting decides what to do with a live record for the pair:
// VERIFIED -> conflict error; fresh PENDING -> hand it back to the retrying
// client; expired PENDING -> abandon it and let the caller start fresh.
func (s *purchaseService) resolveExisting(ctx context.Context, existing *model.PurchaseRecord, buyerID, bookID uuid.UUID) (resolution, bool) {
	switch {
	case existing.IsVerified():
		return resolution{nil, model.NewDuplicatePurchaseError(buyerID.String(), bookID.String())}, true
	case existing.IsPending() && !existing.IsExpired():
		return resolution{existing, nil}, true
	case existing.IsPending():
		if err := s.purchaseRepo.MarkAbandoned(ctx, existing.ID, model.AbandonReasonTimeout); err != nil {
			return resolution{nil, err}, true
		}
		return resolution{}, false
	}
	return resolution{}, false
}

// =====================================================
// CONFIRM PURCHASE
// =====================================================

// ConfirmPurchase is the atomic unit at the heart of the engine: marking the
// row VERIFIED, resolving the royalty decision, and bumping the sale counter
// happen in one database transaction. A verified purchase without a royalty
// decision is unobservable, crash or no crash.
func (s *purchaseService) ConfirmPurchase(ctx context.Context, txHash string, blockHeight int64) (*model.PurchaseRecord, error) {
	record, err := s.purchaseRepo.GetByTxHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, model.ErrUnknownTransaction) {
			return nil, model.NewUnknownTransactionError(txHash)
		}
		return nil, err
	}

	if record.IsVerified() {
		// At-least-once sweeps re-deliver confirmations; idempotent no-op.
		return record, nil
	}

	if record.Status == model.StatusAbandoned {
		// Mined after we gave up on it locally. The pair may have been
		// re-purchased since, so this cannot be auto-resolved.
		conflictErr := s.FlagDuplicateConfirmation(ctx, record.BuyerID, record.BookID, txHash)
		if conflictErr != nil {
			return nil, conflictErr
		}
		return nil, model.NewInconsistencyError(
			fmt.Sprintf("transaction %s confirmed on ledger after local abandonment", txHash))
	}

	book, err := s.catalogRepo.GetByID(ctx, record.BookID)
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer s.txManager.RollbackTx(ctx, tx)

	if err := s.purchaseRepo.MarkVerifiedWithTx(ctx, tx, record.ID, blockHeight); err != nil {
		return nil, err
	}

	royalty := s.royaltySvc.Derive(record, book)
	if royalty == nil {
		// No author, no royalty — recorded permanently so the invariant
		// "verified implies resolved royalty decision" stays checkable.
		if err := s.purchaseRepo.SetRoyaltyExemptWithTx(ctx, tx, record.ID); err != nil {
			return nil, err
		}
	} else {
		if err := s.royaltyRepo.CreateWithTx(ctx, tx, royalty); err != nil {
			return nil, err
		}
	}

	if err := s.catalogRepo.IncrementSalesWithTx(ctx, tx, record.BookID); err != nil {
		return nil, err
	}

	if err := s.txManager.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	record.Status = model.StatusVerified
	record.BlockHeight = &blockHeight
	record.RoyaltyExempt = royalty == nil

	logger.Info("Purchase verified", map[string]interface{}{
		"purchase_id":  record.ID.String(),
		"tx_hash":      txHash,
		"block_height": blockHeight,
		"royalty":      royalty != nil,
	})

	return record, nil
}

// =====================================================
// ABANDON / REAP
// =====================================================

func (s *purchaseService) Abandon(ctx context.Context, txHash string, reason string) error {
	record, err := s.purchaseRepo.GetByTxHash(ctx, txHash)
	if err != nil {
		return err
	}

	if !record.IsPending() {
		return model.ErrPurchaseNotPending
	}

	return s.purchaseRepo.MarkAbandoned(ctx, record.ID, reason)
}

// ReapExpired settles PENDING rows past the inclusion timeout. Each one gets
// a final receipt check first — abandoning a purchase the ledger actually
// mined would fork the two sources of truth.
func (s *purchaseService) ReapExpired(ctx context.Context, limit int) (int, int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(model.PendingTimeoutMinutes) * time.Minute)

	expired, err := s.purchaseRepo.ListExpiredPending(ctx, cutoff, limit)
	if err != nil {
		return 0, 0, err
	}

	confirmed, abandoned := 0, 0
	for _, record := range expired {
		if record.TxHash == "" {
			// Reservation whose submission never happened (crash between
			// insert and submit). Nothing on chain to wait for.
			if err := s.purchaseRepo.MarkAbandoned(ctx, record.ID, model.AbandonReasonTimeout); err == nil {
				abandoned++
			}
			continue
		}

		receipt, err := s.ledgerClient.GetReceipt(ctx, record.TxHash)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				if err := s.purchaseRepo.MarkAbandoned(ctx, record.ID, model.AbandonReasonTimeout); err == nil {
					abandoned++
				}
				continue
			}
			// Node trouble: leave the rest for the next sweep.
			return confirmed, abandoned, err
		}

		switch {
		case receipt.Included && receipt.Success:
			if _, err := s.ConfirmPurchase(ctx, record.TxHash, receipt.BlockHeight); err != nil {
				return confirmed, abandoned, err
			}
			confirmed++
		case receipt.Included:
			if err := s.purchaseRepo.MarkAbandoned(ctx, record.ID, model.AbandonReasonRejected); err == nil {
				abandoned++
			}
		default:
			if err := s.purchaseRepo.MarkAbandoned(ctx, record.ID, model.AbandonReasonTimeout); err == nil {
				abandoned++
			}
		}
	}

	return confirmed, abandoned, nil
}

// =====================================================
// CONFLICTS & QUERIES
// =====================================================

func (s *purchaseService) FlagDuplicateConfirmation(ctx context.Context, buyerID, bookID uuid.UUID, txHash string) error {
	existing, err := s.purchaseRepo.GetActiveByPair(ctx, buyerID, bookID)
	if err != nil {
		return err
	}

	conflict := &model.PurchaseConflict{
		ID:     uuid.New(),
		TxHash: txHash,
		Detail: fmt.Sprintf("duplicate ledger confirmation for buyer %s book %s", buyerID, bookID),
	}
	if existing != nil {
		conflict.PurchaseID = &existing.ID
	}

	if err := s.purchaseRepo.RecordConflict(ctx, conflict); err != nil {
		return err
	}

	logger.Error("Duplicate ledger confirmation flagged for review",
		fmt.Errorf("tx %s, buyer %s, book %s", txHash, buyerID, bookID))

	return nil
}

func (s *purchaseService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]*model.PurchaseRecord, int, error) {
	return s.purchaseRepo.ListByBuyer(ctx, buyerID, page, limit)
}

func (s *purchaseService) HasVerifiedPurchase(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	return s.purchaseRepo.HasVerified(ctx, buyerID, bookID)
}
