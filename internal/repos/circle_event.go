package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type CircleEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.CircleEvent) (*types.CircleEvent, error)
	ListByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, limit int) ([]*types.CircleEvent, error)
}

type circleEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCircleEventRepo(db *gorm.DB, baseLog *logger.Logger) CircleEventRepo {
	return &circleEventRepo{db: db, log: baseLog.With("repo", "CircleEventRepo")}
}

func (r *circleEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.CircleEvent) (*types.CircleEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *circleEventRepo) ListByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, limit int) ([]*types.CircleEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("circle_id = ?", circleID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []*types.CircleEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
