package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookchain-backend/internal/domains/purchase/model"
	"bookchain-backend/internal/domains/purchase/service"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/internal/shared/response"
	"bookchain-backend/internal/shared/utils"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
}

func NewPurchaseHandler(purchaseService service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// InitiatePurchase records the intent and submits the ledger transaction
// POST /api/v1/purchases
func (h *PurchaseHandler) InitiatePurchase(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.InitiatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return
	}

	purchase, err := h.purchaseService.InitiatePurchase(
		c.Request.Context(), principal.UserID, principal.LedgerAddr, bookID,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if purchase.IsVerified() {
		status = http.StatusOK
	}
	response.Success(c, status, purchase.ToResponse())
}

// ListMine returns the caller's purchase history
// GET /api/v1/purchases
func (h *PurchaseHandler) ListMine(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	page, limit := utils.ParsePagination(c)

	purchases, total, err := h.purchaseService.ListByBuyer(c.Request.Context(), principal.UserID, page, limit)
	if err != nil {
		response.InternalServerError(c, "failed to list purchases")
		return
	}

	items := make([]model.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		items = append(items, p.ToResponse())
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// ConfirmPurchase is the operator escape hatch for a confirmation the sweep
// has not picked up yet.
// POST /api/v1/admin/purchases/confirm
func (h *PurchaseHandler) ConfirmPurchase(c *gin.Context) {
	var req struct {
		TxHash      string `json:"tx_hash" binding:"required"`
		BlockHeight int64  `json:"block_height" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "tx_hash and block_height are required")
		return
	}

	purchase, err := h.purchaseService.ConfirmPurchase(c.Request.Context(), req.TxHash, req.BlockHeight)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, purchase.ToResponse())
}

func (h *PurchaseHandler) writeError(c *gin.Context, err error) {
	var purErr *model.PurchaseError
	code := ""
	if errors.As(err, &purErr) {
		code = purErr.Code
	}

	switch {
	case errors.Is(err, model.ErrBookNotFound):
		response.NotFound(c, "book not found")
	case errors.Is(err, model.ErrBookInactive):
		response.BadRequest(c, "book is not for sale")
	case errors.Is(err, model.ErrDuplicatePurchase):
		response.Conflict(c, "book already purchased")
	case errors.Is(err, model.ErrUnknownTransaction):
		response.NotFound(c, "no pending purchase for this transaction")
	case errors.Is(err, model.ErrLedgerUnavailable):
		response.BadGateway(c, "ledger unavailable, try again later")
	case errors.Is(err, model.ErrLedgerRejected):
		response.BadRequest(c, "transaction rejected by ledger")
	case errors.Is(err, model.ErrInconsistency):
		if code != "" {
			response.ErrorResponse(c, http.StatusConflict, code, err.Error())
			return
		}
		response.Conflict(c, err.Error())
	default:
		response.InternalServerError(c, err.Error())
	}
}
