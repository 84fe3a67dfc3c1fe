package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	blobService "bookchain-backend/internal/domains/blob/service"
	"bookchain-backend/internal/domains/catalog/model"
	repo "bookchain-backend/internal/domains/catalog/repository"
	purchaseRepo "bookchain-backend/internal/domains/purchase/repository"
	"bookchain-backend/internal/infrastructure/ledger"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/cache"
	"bookchain-backend/pkg/logger"
)

const (
	bookCacheKeyPrefix = "catalog:book:"
	bookCacheTTL       = 5 * time.Minute
)

var oneHundred = decimal.NewFromInt(100)

// =====================================================
// CATALOG SERVICE IMPLEMENTATION
// =====================================================
type catalogService struct {
	catalogRepo  repo.CatalogRepoInterface
	purchaseRepo purchaseRepo.PurchaseRepoInterface
	blobSvc      blobService.BlobService
	ledgerClient ledger.Client
	cache        cache.Cache
}

func NewCatalogService(
	catalogRepo repo.CatalogRepoInterface,
	purchaseRepo purchaseRepo.PurchaseRepoInterface,
	blobSvc blobService.BlobService,
	ledgerClient ledger.Client,
	cache cache.Cache,
) CatalogService {
	return &catalogService{
		catalogRepo:  catalogRepo,
		purchaseRepo: purchaseRepo,
		blobSvc:      blobSvc,
		ledgerClient: ledgerClient,
		cache:        cache,
	}
}

func bookCacheKey(bookID uuid.UUID) string {
	return bookCacheKeyPrefix + bookID.String()
}

// =====================================================
// CREATE LISTING
// =====================================================

func (s *catalogService) CreateListing(ctx context.Context, principal shared.Principal, req model.CreateListingRequest) (*model.Book, error) {
	if !principal.CanListBooks() {
		return nil, model.NewCatalogError(model.ErrCodeForbidden,
			fmt.Sprintf("Role %s cannot create listings", principal.Role), model.ErrForbidden)
	}

	if err := req.Validate(); err != nil {
		return nil, model.NewCatalogError(model.ErrCodeInvalidPrice, "Invalid listing request", err)
	}

	if req.Price.IsNegative() {
		return nil, model.NewInvalidPriceError(req.Price.String())
	}
	if req.RoyaltyPercentage.IsNegative() || req.RoyaltyPercentage.GreaterThan(oneHundred) {
		return nil, model.NewInvalidRoyaltyError(req.RoyaltyPercentage.String())
	}

	// Both content hashes must already live in the blob cache.
	for _, hash := range []string{req.PDFHash, req.CoverHash} {
		ok, err := s.blobSvc.Exists(ctx, hash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.NewMissingContentError(hash)
		}
	}

	book := &model.Book{
		ID:                uuid.New(),
		Title:             req.Title,
		Description:       req.Description,
		Price:             req.Price,
		RoyaltyPercentage: req.RoyaltyPercentage,
		PDFHash:           req.PDFHash,
		CoverHash:         req.CoverHash,
		IsActive:          true,
	}

	switch principal.Role {
	case shared.RoleAuthor:
		book.AuthorID = &principal.UserID
	case shared.RoleSeller:
		book.SellerID = &principal.UserID
	default:
		book.SellerID = &principal.UserID
	}

	// Row first, submission second: an addBook the chain confirms must
	// always have a local listing to bind to.
	if err := s.catalogRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	txHash, err := s.ledgerClient.Submit(ctx, ledger.OpAddBook, principal.LedgerAddr,
		book.Title,
		book.Price.String(),
		book.PDFHash,
		book.RoyaltyPercentage.String(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.catalogRepo.SetSubmitTxHash(ctx, book.ID, txHash); err != nil {
		return nil, err
	}
	book.SubmitTxHash = &txHash

	logger.Info("Listing created, awaiting ledger confirmation", map[string]interface{}{
		"book_id": book.ID.String(),
		"tx_hash": txHash,
	})

	return book, nil
}

// =====================================================
// LEDGER BINDING
// =====================================================

func (s *catalogService) AssignLedgerID(ctx context.Context, bookID uuid.UUID, ledgerID int64) error {
	if err := s.catalogRepo.AssignLedgerID(ctx, bookID, ledgerID); err != nil {
		if errors.Is(err, model.ErrAlreadyAssigned) {
			return model.NewAlreadyAssignedError(bookID.String())
		}
		return err
	}

	s.invalidate(ctx, bookID)
	return nil
}

func (s *catalogService) ResolveListingConfirmation(ctx context.Context, txHash string, ledgerID int64) error {
	book, err := s.catalogRepo.GetBySubmitTxHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, model.ErrBookNotFound) {
			// Not ours, or already cleaned up. Sweeps are at-least-once.
			return nil
		}
		return err
	}

	if book.HasLedgerID() {
		// Re-delivered confirmation; the binding is one-time.
		return nil
	}

	return s.AssignLedgerID(ctx, book.ID, ledgerID)
}

// =====================================================
// PRICE CHANGES (ledger-first)
// =====================================================

// RequestPriceUpdate never mutates the local price directly. Allowing
// local-only drift would let buyers be charged an on-chain value different
// from the displayed one.
func (s *catalogService) RequestPriceUpdate(ctx context.Context, principal shared.Principal, bookID uuid.UUID, price decimal.Decimal) error {
	if price.IsNegative() {
		return model.NewInvalidPriceError(price.String())
	}

	book, err := s.catalogRepo.GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	if err := s.requireOwner(principal, book); err != nil {
		return err
	}

	if !book.HasLedgerID() {
		return model.NewCatalogError(model.ErrCodeAlreadyAssigned,
			"Listing is not ledger-bound yet", model.ErrBookNotFound)
	}
	if book.HasPendingPriceChange() {
		return model.NewCatalogError(model.ErrCodePriceChangePending,
			"A price change is already awaiting confirmation", model.ErrPriceChangePending)
	}

	// Purchases in flight were submitted at the old on-chain price; changing
	// it underneath them invites mismatched settlements.
	pending, err := s.purchaseRepo.HasPendingForBook(ctx, bookID)
	if err != nil {
		return err
	}
	if pending {
		return model.NewCatalogError(model.ErrCodePendingPurchases,
			"Book has purchases pending at the current price", model.ErrPendingPurchases)
	}

	txHash, err := s.ledgerClient.Submit(ctx, ledger.OpSetPrice, principal.LedgerAddr,
		*book.LedgerID,
		price.String(),
	)
	if err != nil {
		return err
	}

	return s.catalogRepo.SetPendingPrice(ctx, bookID, price, txHash)
}

func (s *catalogService) ApplyPriceChange(ctx context.Context, txHash string) error {
	if err := s.catalogRepo.ApplyPendingPrice(ctx, txHash); err != nil {
		if errors.Is(err, model.ErrBookNotFound) {
			return nil
		}
		return err
	}

	s.cache.DeletePattern(ctx, bookCacheKeyPrefix+"*")
	return nil
}

func (s *catalogService) RejectPriceChange(ctx context.Context, txHash string) error {
	return s.catalogRepo.ClearPendingPrice(ctx, txHash)
}

// =====================================================
// LIFECYCLE & QUERIES
// =====================================================

func (s *catalogService) Deactivate(ctx context.Context, principal shared.Principal, bookID uuid.UUID) error {
	book, err := s.catalogRepo.GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	if err := s.requireOwner(principal, book); err != nil {
		return err
	}

	if err := s.catalogRepo.SetActive(ctx, bookID, false); err != nil {
		return err
	}

	s.invalidate(ctx, bookID)
	return nil
}

func (s *catalogService) GetBook(ctx context.Context, bookID uuid.UUID) (*model.Book, error) {
	key := bookCacheKey(bookID)

	var cached model.Book
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	book, err := s.catalogRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, model.ErrBookNotFound) {
			return nil, model.NewBookNotFoundError(bookID.String())
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, key, book, bookCacheTTL); err != nil {
		logger.Error("Failed to cache book", err)
	}

	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, activeOnly bool, page, limit int) ([]*model.Book, int, error) {
	return s.catalogRepo.List(ctx, activeOnly, page, limit)
}

func (s *catalogService) requireOwner(principal shared.Principal, book *model.Book) error {
	if principal.Role == shared.RoleAdmin {
		return nil
	}
	if book.AuthorID != nil && *book.AuthorID == principal.UserID {
		return nil
	}
	if book.SellerID != nil && *book.SellerID == principal.UserID {
		return nil
	}
	return model.NewCatalogError(model.ErrCodeForbidden,
		"Only the listing owner may modify it", model.ErrForbidden)
}

func (s *catalogService) invalidate(ctx context.Context, bookID uuid.UUID) {
	if err := s.cache.Delete(ctx, bookCacheKey(bookID)); err != nil {
		logger.Error("Failed to invalidate book cache", err)
	}
}
