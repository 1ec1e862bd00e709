// Package jobs runs the asynchronous side of the ledger: the trust-score
// outbox consumer. Appends enqueue; this worker applies. A recompute
// failure is retried with backoff and logged; it never reaches the
// caller whose append triggered it.
package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/services"
)

const (
	maxAttempts  = 5
	retryDelay   = 30 * time.Second
	staleAfter   = 5 * time.Minute
	pollInterval = 1 * time.Second
)

type Worker struct {
	db      *gorm.DB
	log     *logger.Logger
	jobRepo repos.ScoreJobRepo
	trust   services.TrustService
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, jobRepo repos.ScoreJobRepo, trust services.TrustService) *Worker {
	return &Worker{
		db:      db,
		log:     baseLog.With("component", "ScoreWorker"),
		jobRepo: jobRepo,
		trust:   trust,
	}
}

func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting trust score worker pool", "concurrency", concurrency)
	for i := 0; i < concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Warn("Worker tick failed", "worker_id", workerID, "error", err)
			}
		}
	}
}

// RunOnce claims and processes at most one job. Exposed so tests and
// sweep commands can drain the queue synchronously.
func (w *Worker) RunOnce(ctx context.Context) error {
	job, err := w.jobRepo.ClaimNextRunnable(ctx, w.db, maxAttempts, retryDelay, staleAfter)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Recompute panic", "job_id", job.ID, "user_id", job.UserID, "panic", r)
				_ = w.jobRepo.MarkFailed(ctx, nil, job.ID, fmt.Sprintf("panic: %v", r))
			}
		}()

		score, rErr := w.trust.Recompute(ctx, job.UserID)
		if rErr != nil {
			w.log.Warn("Trust recompute failed, will retry",
				"job_id", job.ID,
				"user_id", job.UserID,
				"attempts", job.Attempts+1,
				"error", rErr,
			)
			_ = w.jobRepo.MarkFailed(ctx, nil, job.ID, rErr.Error())
			return
		}
		if mErr := w.jobRepo.MarkSucceeded(ctx, nil, job.ID); mErr != nil {
			w.log.Warn("Failed to mark job succeeded", "job_id", job.ID, "error", mErr)
			return
		}
		w.log.Debug("Trust score applied", "job_id", job.ID, "user_id", job.UserID, "score", score)
	}()
	return nil
}

// Backlog reports how many recomputations are still owed; exported for
// health endpoints and operator visibility.
func (w *Worker) Backlog(ctx context.Context) (int64, error) {
	return w.jobRepo.Backlog(ctx, nil)
}
