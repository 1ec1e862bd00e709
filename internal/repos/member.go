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

type MemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, member *types.Member) (*types.Member, error)
	GetByCircleAndUser(ctx context.Context, tx *gorm.DB, circleID, userID uuid.UUID) (*types.Member, error)
	ListByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) ([]*types.Member, error)
	CountByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, status types.MemberStatus) error
	// ResetStatuses moves every member of the circle to the given status;
	// used only by round rollover inside its transaction.
	ResetStatuses(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, status types.MemberStatus) error
	UpdatePayoutMonth(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, payoutMonth int) error
	// ClearPayoutMonths drops every rotation slot in the circle; the
	// order assigner calls it before writing a replacement ordering.
	ClearPayoutMonths(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) error
	GetByPayoutMonth(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, payoutMonth int) (*types.Member, error)
	Delete(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(ctx context.Context, tx *gorm.DB, member *types.Member) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (r *memberRepo) GetByCircleAndUser(ctx context.Context, tx *gorm.DB, circleID, userID uuid.UUID) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.Member
	err := transaction.WithContext(ctx).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) ListByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var members []*types.Member
	err := transaction.WithContext(ctx).
		Where("circle_id = ?", circleID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepo) CountByCircle(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("circle_id = ?", circleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *memberRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, status types.MemberStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *memberRepo) ResetStatuses(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, status types.MemberStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("circle_id = ?", circleID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *memberRepo) UpdatePayoutMonth(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, payoutMonth int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"payout_month": payoutMonth,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *memberRepo) ClearPayoutMonths(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("circle_id = ?", circleID).
		Updates(map[string]interface{}{
			"payout_month": nil,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *memberRepo) GetByPayoutMonth(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, payoutMonth int) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.Member
	err := transaction.WithContext(ctx).
		Where("circle_id = ? AND payout_month = ?", circleID, payoutMonth).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepo) Delete(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", memberID).
		Delete(&types.Member{}).Error
}
