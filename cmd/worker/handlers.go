package main

import (
	"github.com/hibiken/asynq"

	blobJob "bookchain-backend/internal/domains/blob/job"
	purchaseJob "bookchain-backend/internal/domains/purchase/job"
	royaltyJob "bookchain-backend/internal/domains/royalty/job"
	syncJob "bookchain-backend/internal/domains/sync/job"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	sweep         *syncJob.SweepHandler
	reapExpired   *purchaseJob.ReapExpiredHandler
	submitPayouts *royaltyJob.SubmitPayoutsHandler
	evictionScan  *blobJob.EvictionScanHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		sweep:         syncJob.NewSweepHandler(c.SyncService),
		reapExpired:   purchaseJob.NewReapExpiredHandler(c.PurchaseService),
		submitPayouts: royaltyJob.NewSubmitPayoutsHandler(c.RoyaltyService),
		evictionScan:  blobJob.NewEvictionScanHandler(c.BlobService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeSyncSweep, h.sweep.ProcessTask)
	mux.HandleFunc(shared.TypeReapExpired, h.reapExpired.ProcessTask)
	mux.HandleFunc(shared.TypeSubmitPayouts, h.submitPayouts.ProcessTask)
	mux.HandleFunc(shared.TypeBlobEvictionScan, h.evictionScan.ProcessTask)
}
