package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookchain-backend/internal/domains/royalty/service"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/internal/shared/response"
	"bookchain-backend/internal/shared/utils"
)

type RoyaltyHandler struct {
	royaltyService service.RoyaltyService
}

func NewRoyaltyHandler(royaltyService service.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{royaltyService: royaltyService}
}

// ListMine returns the caller's royalty history
// GET /api/v1/royalties
func (h *RoyaltyHandler) ListMine(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	page, limit := utils.ParsePagination(c)

	royalties, total, err := h.royaltyService.ListByAuthor(c.Request.Context(), principal.UserID, page, limit)
	if err != nil {
		response.InternalServerError(c, "failed to list royalties")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, royalties, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Earnings returns the caller's aggregate royalty totals
// GET /api/v1/royalties/earnings
func (h *RoyaltyHandler) Earnings(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	earnings, err := h.royaltyService.GetAuthorEarnings(c.Request.Context(), principal.UserID)
	if err != nil {
		response.InternalServerError(c, "failed to load earnings")
		return
	}

	response.Success(c, http.StatusOK, earnings)
}
