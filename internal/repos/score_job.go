package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type ScoreJobRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, job *types.ScoreJob) (*types.ScoreJob, error)
	// ClaimNextRunnable picks the oldest runnable job and marks it
	// running: queued, or failed past its retry delay, or running but
	// locked before the stale cutoff (the claimer died without marking
	// an outcome). Attempts are bounded either way. Safe for concurrent
	// workers.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleAfter time.Duration) (*types.ScoreJob, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, reason string) error
	Backlog(ctx context.Context, tx *gorm.DB) (int64, error)
}

type scoreJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreJobRepo(db *gorm.DB, baseLog *logger.Logger) ScoreJobRepo {
	return &scoreJobRepo{db: db, log: baseLog.With("repo", "ScoreJobRepo")}
}

func (r *scoreJobRepo) Enqueue(ctx context.Context, tx *gorm.DB, job *types.ScoreJob) (*types.ScoreJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *scoreJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleAfter time.Duration) (*types.ScoreJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleAfter)
	var claimed *types.ScoreJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		q := txx.Where(
			"status = ?"+
				" OR (status = ? AND attempts < ? AND (last_error_at IS NULL OR last_error_at < ?))"+
				" OR (status = ? AND attempts < ? AND locked_at IS NOT NULL AND locked_at < ?)",
			types.ScoreJobQueued,
			types.ScoreJobFailed, maxAttempts, retryCutoff,
			types.ScoreJobRunning, maxAttempts, staleCutoff,
		).Order("created_at ASC")
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var job types.ScoreJob
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.ScoreJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     types.ScoreJobRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *scoreJobRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ScoreJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     types.ScoreJobSucceeded,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *scoreJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, reason string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.ScoreJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":        types.ScoreJobFailed,
			"last_error":    reason,
			"last_error_at": now,
			"updated_at":    now,
		}).Error
}

func (r *scoreJobRepo) Backlog(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ScoreJob{}).
		Where("status IN ?", []types.ScoreJobStatus{types.ScoreJobQueued, types.ScoreJobFailed}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
