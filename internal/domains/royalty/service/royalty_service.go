package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "bookchain-backend/internal/domains/catalog/model"
	purchaseModel "bookchain-backend/internal/domains/purchase/model"
	"bookchain-backend/internal/domains/royalty/model"
	repo "bookchain-backend/internal/domains/royalty/repository"
	"bookchain-backend/internal/infrastructure/ledger"
	"bookchain-backend/pkg/logger"
)

// minorUnitPlaces is the ledger currency's minor-unit precision (cents).
const minorUnitPlaces = 2

// oneHundred is the royalty percentage divisor
var oneHundred = decimal.NewFromInt(100)

// =====================================================
// ROYALTY SERVICE IMPLEMENTATION
// =====================================================
type royaltyService struct {
	royaltyRepo  repo.RoyaltyRepoInterface
	ledgerClient ledger.Client

	// payoutSigner is the platform account that signs payRoyalty
	// transactions
	payoutSigner string
}

func NewRoyaltyService(
	royaltyRepo repo.RoyaltyRepoInterface,
	ledgerClient ledger.Client,
	payoutSigner string,
) RoyaltyService {
	return &royaltyService{
		royaltyRepo:  royaltyRepo,
		ledgerClient: ledgerClient,
		payoutSigner: payoutSigner,
	}
}

// =====================================================
// DERIVATION
// =====================================================

// Derive computes amount = price_paid * royalty% / 100, rounded half-even to
// the minor unit. Banker's rounding is deliberate: any other rule would
// drift the books against the ledger one cent at a time.
func (s *royaltyService) Derive(purchase *purchaseModel.PurchaseRecord, book *catalogModel.Book) *model.RoyaltyRecord {
	if !book.HasAuthor() {
		// Permanent no-royalty decision; the caller records it on the
		// purchase row.
		return nil
	}

	amount := purchase.PricePaid.
		Mul(book.RoyaltyPercentage).
		Div(oneHundred).
		RoundBank(minorUnitPlaces)

	return &model.RoyaltyRecord{
		ID:           uuid.New(),
		AuthorID:     *book.AuthorID,
		BookID:       book.ID,
		PurchaseID:   purchase.ID,
		Amount:       amount,
		PayoutStatus: model.PayoutStatusUnpaid,
	}
}

// =====================================================
// PAYOUT LIFECYCLE
// =====================================================

// SubmitPendingPayouts walks unpaid royalties and submits one payRoyalty
// transaction each. A submission failure stops the batch; already-submitted
// rows keep their state and the next sweep picks up where this one stopped.
func (s *royaltyService) SubmitPendingPayouts(ctx context.Context, limit int) (int, error) {
	unpaid, err := s.royaltyRepo.ListUnpaid(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpaid royalties: %w", err)
	}

	submitted := 0
	for _, royalty := range unpaid {
		txHash, err := s.ledgerClient.Submit(ctx, ledger.OpPayRoyalty, s.payoutSigner,
			royalty.AuthorID.String(),
			royalty.Amount.String(),
			royalty.PurchaseID.String(),
		)
		if err != nil {
			return submitted, fmt.Errorf("failed to submit payout for royalty %s: %w", royalty.ID, err)
		}

		if err := s.royaltyRepo.MarkPayoutSubmitted(ctx, royalty.ID, txHash); err != nil {
			// The tx is on its way but the local row did not move. The
			// sweep's receipt scan will reconcile it by payout hash.
			logger.Error("Royalty payout submitted but not recorded", err)
			return submitted, err
		}

		submitted++
	}

	return submitted, nil
}

func (s *royaltyService) ConfirmPayout(ctx context.Context, txHash string, blockHeight int64) error {
	royalty, err := s.royaltyRepo.GetByPayoutTxHash(ctx, txHash)
	if err != nil {
		return err
	}

	if royalty.IsPaid() {
		// At-least-once sweeps may confirm twice; the second is a no-op.
		return nil
	}

	if err := s.royaltyRepo.MarkPaid(ctx, royalty.ID, blockHeight); err != nil {
		return err
	}

	logger.Info("Royalty payout confirmed", map[string]interface{}{
		"royalty_id":   royalty.ID.String(),
		"tx_hash":      txHash,
		"block_height": blockHeight,
		"amount":       royalty.Amount.String(),
	})

	return nil
}

func (s *royaltyService) RejectPayout(ctx context.Context, txHash string) error {
	royalty, err := s.royaltyRepo.GetByPayoutTxHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, model.ErrRoyaltyNotFound) {
			return nil
		}
		return err
	}

	logger.Error("Royalty payout rejected by ledger, resetting for resubmission",
		fmt.Errorf("royalty %s tx %s", royalty.ID, txHash))

	return s.royaltyRepo.ResetPayout(ctx, royalty.ID)
}

// ReconcileSubmitted checks the inclusion result of every submitted payout
// against the ledger. Node errors stop the batch so the next sweep retries
// from the same set.
func (s *royaltyService) ReconcileSubmitted(ctx context.Context, limit int) (int, int, error) {
	pending, err := s.royaltyRepo.ListSubmitted(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list submitted payouts: %w", err)
	}

	confirmed, rejected := 0, 0
	for _, royalty := range pending {
		receipt, err := s.ledgerClient.GetReceipt(ctx, *royalty.PayoutTxHash)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			return confirmed, rejected, fmt.Errorf("failed to check payout receipt: %w", err)
		}
		if !receipt.Included {
			continue
		}

		if receipt.Success {
			if err := s.ConfirmPayout(ctx, *royalty.PayoutTxHash, receipt.BlockHeight); err != nil {
				return confirmed, rejected, err
			}
			confirmed++
		} else {
			if err := s.RejectPayout(ctx, *royalty.PayoutTxHash); err != nil {
				return confirmed, rejected, err
			}
			rejected++
		}
	}

	return confirmed, rejected, nil
}

// =====================================================
// AUTHOR VIEWS
// =====================================================

func (s *royaltyService) ListByAuthor(ctx context.Context, authorID uuid.UUID, page, limit int) ([]*model.RoyaltyRecord, int, error) {
	return s.royaltyRepo.ListByAuthor(ctx, authorID, page, limit)
}

func (s *royaltyService) GetAuthorEarnings(ctx context.Context, authorID uuid.UUID) (*model.AuthorEarnings, error) {
	return s.royaltyRepo.GetAuthorEarnings(ctx, authorID)
}
