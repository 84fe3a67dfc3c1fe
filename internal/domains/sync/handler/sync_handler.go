package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/domains/sync/service"
	"bookchain-backend/internal/shared/response"
)

type SyncHandler struct {
	syncService service.SyncService
}

func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Status reports every sweep cursor
// GET /api/v1/admin/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	cursors, err := h.syncService.Status(c.Request.Context())
	if err != nil {
		response.InternalServerError(c, "failed to read sync cursors")
		return
	}

	response.Success(c, http.StatusOK, cursors)
}

// TriggerSweep runs one sweep immediately instead of waiting for the
// scheduler.
// POST /api/v1/admin/sync/sweep
func (h *SyncHandler) TriggerSweep(c *gin.Context) {
	var req struct {
		Category string `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "category is required")
		return
	}

	result, err := h.syncService.RunSweep(c.Request.Context(), req.Category)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUnknownCategory):
			response.BadRequest(c, "unknown sync category")
		case errors.Is(err, model.ErrSweepInProgress):
			response.Conflict(c, "sweep already running")
		default:
			response.ErrorWithDetails(c, http.StatusInternalServerError,
				"SWEEP_FAILED", err.Error(), result)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}
