package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/domains/sync/service"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/logger"
)

// SweepHandler drives one cursor category per task
type SweepHandler struct {
	syncService service.SyncService
}

func NewSweepHandler(syncService service.SyncService) *SweepHandler {
	return &SweepHandler{
		syncService: syncService,
	}
}

func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.SyncSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}

	result, err := h.syncService.RunSweep(ctx, payload.Category)
	if err != nil {
		// Another runner holds the cursor; the next tick picks it up.
		if err == model.ErrSweepInProgress {
			logger.Info("Sweep already in progress, skipping", map[string]interface{}{
				"category": payload.Category,
			})
			return nil
		}
		if err == model.ErrUnknownCategory {
			return fmt.Errorf("unknown sync category %q: %w", payload.Category, asynq.SkipRetry)
		}
		logger.ErrorFields("Sweep failed", err, map[string]interface{}{
			"category": payload.Category,
		})
		return fmt.Errorf("run sweep %s: %w", payload.Category, err)
	}

	logger.Info("Sweep completed", map[string]interface{}{
		"category":   result.Category,
		"from_block": result.FromBlock,
		"to_block":   result.ToBlock,
		"events":     result.Events,
		"reconciled": result.Reconciled,
		"conflicts":  result.Conflicts,
	})

	return nil
}
