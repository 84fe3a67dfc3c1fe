package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookchain-backend/internal/domains/catalog/model"
	"bookchain-backend/internal/domains/catalog/service"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/internal/shared/response"
	"bookchain-backend/internal/shared/utils"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CreateListing records a new book and submits its addBook transaction
// POST /api/v1/books
func (h *CatalogHandler) CreateListing(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	book, err := h.catalogService.CreateListing(c.Request.Context(), principal, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, book.ToResponse())
}

// GetBook reads one listing
// GET /api/v1/books/:book_id
func (h *CatalogHandler) GetBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return
	}

	book, err := h.catalogService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, book.ToResponse())
}

// ListBooks pages through listings
// GET /api/v1/books
func (h *CatalogHandler) ListBooks(c *gin.Context) {
	page, limit := utils.ParsePagination(c)
	activeOnly := c.DefaultQuery("active", "true") == "true"

	books, total, err := h.catalogService.ListBooks(c.Request.Context(), activeOnly, page, limit)
	if err != nil {
		response.InternalServerError(c, "failed to list books")
		return
	}

	items := make([]model.BookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, b.ToResponse())
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// UpdatePrice starts a ledger-first price change
// PUT /api/v1/books/:book_id/price
func (h *CatalogHandler) UpdatePrice(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return
	}

	var req model.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	if err := h.catalogService.RequestPriceUpdate(c.Request.Context(), principal, bookID, req.Price); err != nil {
		h.writeError(c, err)
		return
	}

	// Accepted, not applied: the local price changes only after the
	// ledger confirms.
	response.Success(c, http.StatusAccepted, gin.H{"status": "price change submitted"})
}

// Deactivate takes a listing off sale
// DELETE /api/v1/books/:book_id
func (h *CatalogHandler) Deactivate(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return
	}

	if err := h.catalogService.Deactivate(c.Request.Context(), principal, bookID); err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *CatalogHandler) writeError(c *gin.Context, err error) {
	var catErr *model.CatalogError
	code := ""
	if errors.As(err, &catErr) {
		code = catErr.Code
	}

	switch {
	case errors.Is(err, model.ErrBookNotFound):
		response.NotFound(c, "book not found")
	case errors.Is(err, model.ErrForbidden):
		response.Forbidden(c, "not the owner of this listing")
	case errors.Is(err, model.ErrPriceChangePending):
		response.Conflict(c, "a price change is already in flight")
	case errors.Is(err, model.ErrPendingPurchases):
		response.Conflict(c, "book has pending purchases")
	case errors.Is(err, model.ErrMissingContent),
		errors.Is(err, model.ErrInvalidPrice),
		errors.Is(err, model.ErrInvalidRoyalty),
		errors.Is(err, model.ErrNoOwner):
		if code != "" {
			response.ErrorResponse(c, http.StatusBadRequest, code, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
	default:
		response.InternalServerError(c, err.Error())
	}
}
