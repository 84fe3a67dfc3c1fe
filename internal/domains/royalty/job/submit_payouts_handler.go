package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"bookchain-backend/internal/domains/royalty/service"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/logger"
)

// SubmitPayoutsHandler pushes unpaid royalties to the ledger and then
// polls receipts for earlier submissions still in flight.
type SubmitPayoutsHandler struct {
	royaltyService service.RoyaltyService
}

func NewSubmitPayoutsHandler(royaltyService service.RoyaltyService) *SubmitPayoutsHandler {
	return &SubmitPayoutsHandler{
		royaltyService: royaltyService,
	}
}

func (h *SubmitPayoutsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.SubmitPayoutsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}

	submitted, err := h.royaltyService.SubmitPendingPayouts(ctx, payload.Limit)
	if err != nil {
		logger.Error("Submit pending payouts failed", err)
		return fmt.Errorf("submit payouts: %w", err)
	}

	confirmed, rejected, err := h.royaltyService.ReconcileSubmitted(ctx, payload.Limit)
	if err != nil {
		logger.Error("Reconcile submitted payouts failed", err)
		return fmt.Errorf("reconcile payouts: %w", err)
	}

	if submitted > 0 || confirmed > 0 || rejected > 0 {
		logger.Info("Processed royalty payouts", map[string]interface{}{
			"submitted": submitted,
			"confirmed": confirmed,
			"rejected":  rejected,
		})
	}

	return nil
}
