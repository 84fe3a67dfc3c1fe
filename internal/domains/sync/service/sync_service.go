package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	catalogRepository "bookchain-backend/internal/domains/catalog/repository"
	catalogService "bookchain-backend/internal/domains/catalog/service"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
	purchaseService "bookchain-backend/internal/domains/purchase/service"
	royaltyModel "bookchain-backend/internal/domains/royalty/model"
	royaltyService "bookchain-backend/internal/domains/royalty/service"
	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/domains/sync/repository"
	"bookchain-backend/internal/infrastructure/ledger"
	"bookchain-backend/pkg/logger"
)

// reconcileBatchLimit caps the receipt-poll passes bolted onto each sweep
const reconcileBatchLimit = 100

// categoryEvents is the event subscription per sweep category
var categoryEvents = map[string][]string{
	model.CategoryBooks:     {ledger.EventBookAdded, ledger.EventPriceChanged},
	model.CategoryPurchases: {ledger.EventBookPurchased},
	model.CategoryRoyalties: {ledger.EventRoyaltyPaid},
}

type syncService struct {
	syncRepo      repository.SyncRepoInterface
	ledgerClient  ledger.Client
	purchaseSvc   purchaseService.PurchaseService
	royaltySvc    royaltyService.RoyaltyService
	catalogSvc    catalogService.CatalogService
	catalogRepo   catalogRepository.CatalogRepoInterface
	buyerResolver BuyerResolver
}

func NewSyncService(
	syncRepo repository.SyncRepoInterface,
	ledgerClient ledger.Client,
	purchaseSvc purchaseService.PurchaseService,
	royaltySvc royaltyService.RoyaltyService,
	catalogSvc catalogService.CatalogService,
	catalogRepo catalogRepository.CatalogRepoInterface,
	buyerResolver BuyerResolver,
) SyncService {
	return &syncService{
		syncRepo:      syncRepo,
		ledgerClient:  ledgerClient,
		purchaseSvc:   purchaseSvc,
		royaltySvc:    royaltySvc,
		catalogSvc:    catalogSvc,
		catalogRepo:   catalogRepo,
		buyerResolver: buyerResolver,
	}
}

// =====================================================
// SWEEP DRIVER
// =====================================================

func (s *syncService) RunSweep(ctx context.Context, category string) (*model.SweepResult, error) {
	names, ok := categoryEvents[category]
	if !ok {
		return nil, model.ErrUnknownCategory
	}

	cursor, err := s.syncRepo.AcquireSweep(ctx, category)
	if err != nil {
		return nil, err
	}

	result, err := s.sweep(ctx, cursor, names)
	if err != nil {
		if failErr := s.syncRepo.FailSweep(ctx, category, err.Error()); failErr != nil {
			logger.Error("Failed to record sweep failure", failErr)
		}
		return result, err
	}

	if err := s.syncRepo.CompleteSweep(ctx, category); err != nil {
		return result, err
	}

	logger.Info("Sweep completed", map[string]interface{}{
		"category":   result.Category,
		"from_block": result.FromBlock,
		"to_block":   result.ToBlock,
		"events":     result.Events,
		"reconciled": result.Reconciled,
		"conflicts":  result.Conflicts,
	})

	return result, nil
}

// sweep walks finalized events from the cursor to the chain head. The cursor
// only advances past blocks whose events all dispatched, so a failed sweep
// resumes exactly where it stopped.
func (s *syncService) sweep(ctx context.Context, cursor *model.SyncCursor, names []string) (*model.SweepResult, error) {
	result := &model.SweepResult{
		Category:  cursor.Category,
		FromBlock: cursor.LastSyncedBlock + 1,
		ToBlock:   cursor.LastSyncedBlock,
	}

	head, err := s.ledgerClient.BlockHeight(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read chain head: %w", err)
	}

	if head > cursor.LastSyncedBlock {
		events, err := s.ledgerClient.Events(ctx, cursor.LastSyncedBlock+1, head, names)
		if err != nil {
			return result, fmt.Errorf("failed to fetch ledger events: %w", err)
		}

		for _, event := range events {
			if err := s.dispatch(ctx, cursor.Category, event, result); err != nil {
				// Advance past the fully processed blocks before bailing
				if event.BlockHeight > cursor.LastSyncedBlock+1 {
					s.advance(ctx, cursor.Category, event.BlockHeight-1, result)
				}
				return result, fmt.Errorf("failed to dispatch %s event at block %d (tx %s): %w",
					event.Name, event.BlockHeight, event.TxHash, err)
			}
			result.Events++
		}

		s.advance(ctx, cursor.Category, head, result)
	}

	// Receipt polls catch transactions whose event the node pruned or that
	// failed execution and therefore emitted nothing.
	if err := s.reconcileReceipts(ctx, cursor.Category, result); err != nil {
		return result, err
	}

	return result, nil
}

func (s *syncService) advance(ctx context.Context, category string, block int64, result *model.SweepResult) {
	if err := s.syncRepo.AdvanceBlock(ctx, category, block); err != nil {
		logger.Error("Failed to advance sync cursor", err)
		return
	}
	result.ToBlock = block
}

// =====================================================
// EVENT DISPATCH
// =====================================================

func (s *syncService) dispatch(ctx context.Context, category string, event ledger.Event, result *model.SweepResult) error {
	switch event.Name {
	case ledger.EventBookAdded:
		if err := s.catalogSvc.ResolveListingConfirmation(ctx, event.TxHash, event.LedgerID); err != nil {
			return err
		}
		result.Reconciled++
		return nil

	case ledger.EventPriceChanged:
		if err := s.catalogSvc.ApplyPriceChange(ctx, event.TxHash); err != nil {
			return err
		}
		result.Reconciled++
		return nil

	case ledger.EventBookPurchased:
		return s.dispatchPurchase(ctx, event, result)

	case ledger.EventRoyaltyPaid:
		if err := s.royaltySvc.ConfirmPayout(ctx, event.TxHash, event.BlockHeight); err != nil {
			if errors.Is(err, royaltyModel.ErrRoyaltyNotFound) {
				// Payout recorded on the ledger but not locally. The
				// submitted-payout poll owns that reconciliation.
				logger.Warn("RoyaltyPaid event with no local payout record", map[string]interface{}{
					"tx_hash": event.TxHash,
					"block":   event.BlockHeight,
				})
				return nil
			}
			return err
		}
		result.Reconciled++
		return nil
	}

	logger.Warn("Unexpected event in sweep", map[string]interface{}{
		"category": category,
		"event":    event.Name,
		"tx_hash":  event.TxHash,
	})
	return nil
}

// dispatchPurchase confirms the pending purchase behind a BookPurchased
// event. A hash this node never recorded means either a crash between submit
// and SetTxHash, or a genuine second on-chain purchase for an already
// verified pair; the latter is flagged for operator review, never resolved.
func (s *syncService) dispatchPurchase(ctx context.Context, event ledger.Event, result *model.SweepResult) error {
	_, err := s.purchaseSvc.ConfirmPurchase(ctx, event.TxHash, event.BlockHeight)
	if err == nil {
		result.Reconciled++
		return nil
	}

	if errors.Is(err, purchaseModel.ErrInconsistency) {
		// Confirmation for an abandoned record; already flagged downstream.
		result.Conflicts++
		return nil
	}

	if !errors.Is(err, purchaseModel.ErrUnknownTransaction) {
		return err
	}

	buyerID, book, resolveErr := s.resolveParties(ctx, event)
	if resolveErr != nil {
		logger.Warn("BookPurchased event with unresolvable parties", map[string]interface{}{
			"tx_hash":   event.TxHash,
			"ledger_id": event.LedgerID,
			"error":     resolveErr.Error(),
		})
		return nil
	}

	verified, err := s.purchaseSvc.HasVerifiedPurchase(ctx, buyerID, book.ID)
	if err != nil {
		return err
	}
	if verified {
		if err := s.purchaseSvc.FlagDuplicateConfirmation(ctx, buyerID, book.ID, event.TxHash); err != nil {
			return err
		}
		result.Conflicts++
		return nil
	}

	logger.Warn("BookPurchased event with no local purchase record", map[string]interface{}{
		"tx_hash": event.TxHash,
		"buyer":   buyerID.String(),
		"book":    book.ID.String(),
	})
	return nil
}

func (s *syncService) resolveParties(ctx context.Context, event ledger.Event) (uuid.UUID, *catalogModel.Book, error) {
	addr, ok := event.Params["buyer"]
	if !ok || addr == "" {
		return uuid.Nil, nil, errors.New("event carries no buyer address")
	}

	buyerID, err := s.buyerResolver.ResolveLedgerAddress(ctx, addr)
	if err != nil {
		return uuid.Nil, nil, err
	}

	book, err := s.catalogRepo.GetByLedgerID(ctx, event.LedgerID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	return buyerID, book, nil
}

// =====================================================
// RECEIPT POLLS
// =====================================================

func (s *syncService) reconcileReceipts(ctx context.Context, category string, result *model.SweepResult) error {
	switch category {
	case model.CategoryBooks:
		return s.reconcilePriceChanges(ctx, result)
	case model.CategoryRoyalties:
		confirmed, rejected, err := s.royaltySvc.ReconcileSubmitted(ctx, reconcileBatchLimit)
		result.Reconciled += confirmed + rejected
		return err
	}
	return nil
}

// reconcilePriceChanges settles in-flight price changes by receipt. A mined
// but failed setPrice emits no PriceChanged event, so this poll is the only
// place a rejected price change gets cleared.
func (s *syncService) reconcilePriceChanges(ctx context.Context, result *model.SweepResult) error {
	pending, err := s.catalogRepo.ListPendingPriceChanges(ctx, reconcileBatchLimit)
	if err != nil {
		return err
	}

	for _, book := range pending {
		if book.PriceTxHash == nil {
			continue
		}

		receipt, err := s.ledgerClient.GetReceipt(ctx, *book.PriceTxHash)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to check price change receipt: %w", err)
		}
		if !receipt.Included {
			continue
		}

		if receipt.Success {
			err = s.catalogSvc.ApplyPriceChange(ctx, *book.PriceTxHash)
		} else {
			err = s.catalogSvc.RejectPriceChange(ctx, *book.PriceTxHash)
		}
		if err != nil {
			return err
		}
		result.Reconciled++
	}

	return nil
}

// =====================================================
// ORCHESTRATION
// =====================================================

func (s *syncService) RunAll(ctx context.Context) []*model.SweepResult {
	var results []*model.SweepResult
	for _, category := range model.Categories {
		result, err := s.RunSweep(ctx, category)
		if err != nil {
			if errors.Is(err, model.ErrSweepInProgress) {
				logger.Debug("Sweep already running, skipping " + category)
				continue
			}
			logger.Error("Sweep failed for "+category, err)
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results
}

func (s *syncService) Status(ctx context.Context) ([]*model.SyncCursor, error) {
	return s.syncRepo.ListCursors(ctx)
}
