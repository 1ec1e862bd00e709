package types

import (
	"time"

	"github.com/google/uuid"
)

type ScoreJobStatus string

const (
	ScoreJobQueued    ScoreJobStatus = "queued"
	ScoreJobRunning   ScoreJobStatus = "running"
	ScoreJobSucceeded ScoreJobStatus = "succeeded"
	ScoreJobFailed    ScoreJobStatus = "failed"
)

// ScoreJob is the outbox row for an asynchronous trust-score
// recomputation. It is enqueued in the same transaction as the ledger
// append that triggered it, so the queue can never miss a trigger.
type ScoreJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	EntryID     uuid.UUID      `gorm:"type:uuid;not null;column:entry_id" json:"entry_id"`
	Status      ScoreJobStatus `gorm:"not null;default:queued;index;column:status" json:"status"`
	Attempts    int            `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ScoreJob) TableName() string {
	return "score_job"
}
