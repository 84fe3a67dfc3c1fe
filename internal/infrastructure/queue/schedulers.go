package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bookchain-backend/internal/config"
	syncModel "bookchain-backend/internal/domains/sync/model"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	workerCfg config.WorkerConfig
}

func NewScheduler(redisCfg config.RedisConfig, workerCfg config.WorkerConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Host,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		workerCfg: workerCfg,
	}
}

func (s *Scheduler) RegisterPeriodicJobs() error {
	if err := s.registerSweepJobs(); err != nil {
		return err
	}

	if err := s.registerReapExpiredJob(); err != nil {
		return err
	}

	if err := s.registerSubmitPayoutsJob(); err != nil {
		return err
	}

	if err := s.registerBlobEvictionScanJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Ledger Sweeps (Every minute, per category)
// ================================================
// One entry per cursor category so a slow category never delays the
// others. Cursor acquisition in the repository keeps concurrent ticks
// from racing.
func (s *Scheduler) registerSweepJobs() error {
	for _, category := range syncModel.Categories {
		payload, err := json.Marshal(shared.SyncSweepPayload{Category: category})
		if err != nil {
			return err
		}

		task := asynq.NewTask(shared.TypeSyncSweep, payload)

		_, err = s.scheduler.Register(
			"@every 1m",
			task,
			asynq.Queue(shared.QueueSync),
			asynq.MaxRetry(2),
			asynq.Timeout(5*time.Minute),
		)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to register sweep job for %s", category), err)
			return err
		}

		logger.Info("Registered ledger sweep: every minute", map[string]interface{}{
			"category": category,
		})
	}

	return nil
}

// ================================================
// JOB 2: Reap Expired Purchases (Every 5 minutes)
// ================================================
// PENDING purchases past the inclusion timeout either verified from
// their receipt or abandoned so the buyer can retry.
func (s *Scheduler) registerReapExpiredJob() error {
	payload, err := json.Marshal(shared.ReapExpiredPayload{
		Limit: s.workerCfg.ReapBatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReapExpired, payload)

	_, err = s.scheduler.Register(
		"@every 5m",
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ReapExpired job", err)
		return err
	}

	logger.Info("Registered ReapExpired: every 5 minutes", map[string]interface{}{
		"batch_size": s.workerCfg.ReapBatchSize,
	})
	return nil
}

// ================================================
// JOB 3: Submit Royalty Payouts (Every 10 minutes)
// ================================================
func (s *Scheduler) registerSubmitPayoutsJob() error {
	payload, err := json.Marshal(shared.SubmitPayoutsPayload{
		Limit: s.workerCfg.PayoutBatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSubmitPayouts, payload)

	_, err = s.scheduler.Register(
		"@every 10m",
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register SubmitPayouts job", err)
		return err
	}

	logger.Info("Registered SubmitPayouts: every 10 minutes", map[string]interface{}{
		"batch_size": s.workerCfg.PayoutBatchSize,
	})
	return nil
}

// ================================================
// JOB 4: Blob Eviction Scan (Daily at 4 AM)
// ================================================
// Low traffic time. The scan only ranks candidates, so a missed run
// costs nothing but stale numbers.
func (s *Scheduler) registerBlobEvictionScanJob() error {
	payload, err := json.Marshal(shared.BlobEvictionScanPayload{
		Limit: s.workerCfg.EvictionScanSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeBlobEvictionScan, payload)

	_, err = s.scheduler.Register(
		"0 4 * * *",
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register BlobEvictionScan job", err)
		return err
	}

	logger.Info("Registered BlobEvictionScan: daily at 4 AM", map[string]interface{}{
		"scan_size": s.workerCfg.EvictionScanSize,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
