package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type CircleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, circle *types.Circle) (*types.Circle, error)
	GetByID(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (*types.Circle, error)
	// GetByIDForUpdate takes the serializing row lock every
	// read-validate-write sequence on a circle must hold.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (*types.Circle, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, status types.CircleStatus) error
	ListByMember(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Circle, error)
}

type circleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCircleRepo(db *gorm.DB, baseLog *logger.Logger) CircleRepo {
	return &circleRepo{db: db, log: baseLog.With("repo", "CircleRepo")}
}

func (r *circleRepo) Create(ctx context.Context, tx *gorm.DB, circle *types.Circle) (*types.Circle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(circle).Error; err != nil {
		return nil, err
	}
	return circle, nil
}

func (r *circleRepo) GetByID(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (*types.Circle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var circle types.Circle
	err := transaction.WithContext(ctx).
		Where("id = ?", circleID).
		First(&circle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

func (r *circleRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (*types.Circle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var circle types.Circle
	err := forUpdate(transaction.WithContext(ctx)).
		Where("id = ?", circleID).
		First(&circle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

func (r *circleRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, status types.CircleStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Circle{}).
		Where("id = ?", circleID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *circleRepo) ListByMember(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Circle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var circles []*types.Circle
	err := transaction.WithContext(ctx).
		Joins("JOIN member ON member.circle_id = circle.id").
		Where("member.user_id = ?", userID).
		Order("circle.created_at DESC").
		Find(&circles).Error
	if err != nil {
		return nil, err
	}
	return circles, nil
}
