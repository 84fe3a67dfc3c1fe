package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"bookchain-backend/internal/domains/blob/service"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/logger"
)

// EvictionScanHandler ranks the coldest unreferenced blobs and logs the
// outcome so operators can reclaim storage. Removal stays manual.
type EvictionScanHandler struct {
	blobService service.BlobService
}

func NewEvictionScanHandler(blobService service.BlobService) *EvictionScanHandler {
	return &EvictionScanHandler{
		blobService: blobService,
	}
}

func (h *EvictionScanHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.BlobEvictionScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", asynq.SkipRetry)
	}

	candidates, err := h.blobService.EvictionCandidates(ctx, payload.Limit)
	if err != nil {
		logger.Error("Eviction scan failed", err)
		return fmt.Errorf("eviction scan: %w", err)
	}

	if len(candidates) == 0 {
		logger.Debug("Eviction scan found no candidates")
		return nil
	}

	coldest := candidates[0]
	logger.Info("Eviction scan completed", map[string]interface{}{
		"candidates":          len(candidates),
		"coldest_hash":        coldest.ContentHash,
		"coldest_access_cnt":  coldest.AccessCount,
		"coldest_last_access": coldest.LastAccessed,
	})

	return nil
}
