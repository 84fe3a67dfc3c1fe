package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"bookchain-backend/internal/domains/purchase/service"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/logger"
)

// ReapExpiredHandler settles PENDING purchases whose inclusion window
// has lapsed: confirmed ones are verified, the rest abandoned.
type ReapExpiredHandler struct {
	purchaseService service.PurchaseService
}

func NewReapExpiredHandler(purchaseService service.PurchaseService) *ReapExpiredHandler {
	return &ReapExpiredHandler{
		purchaseService: purchaseService,
	}
}

func (h *ReapExpiredHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ReapExpiredPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}

	confirmed, abandoned, err := h.purchaseService.ReapExpired(ctx, payload.Limit)
	if err != nil {
		logger.Error("Reap expired purchases failed", err)
		return fmt.Errorf("reap expired: %w", err)
	}

	if confirmed > 0 || abandoned > 0 {
		logger.Info("Reaped expired purchases", map[string]interface{}{
			"confirmed": confirmed,
			"abandoned": abandoned,
		})
	}

	return nil
}
