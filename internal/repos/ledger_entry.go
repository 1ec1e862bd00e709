package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// HistoryFilter narrows a ledger read. Zero values mean "no constraint".
type HistoryFilter struct {
	CircleID uuid.UUID
	UserID   uuid.UUID
	Type     types.LedgerEntryType
	Limit    int
}

// LedgerEntryRepo is append-only on purpose: there is no update or delete.
type LedgerEntryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.LedgerEntry) (*types.LedgerEntry, error)
	History(ctx context.Context, tx *gorm.DB, filter HistoryFilter) ([]*types.LedgerEntry, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LedgerEntry, error)
	CountByCircleAndType(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, entryType types.LedgerEntryType) (int64, error)
}

type ledgerEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerEntryRepo(db *gorm.DB, baseLog *logger.Logger) LedgerEntryRepo {
	return &ledgerEntryRepo{db: db, log: baseLog.With("repo", "LedgerEntryRepo")}
}

func (r *ledgerEntryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.LedgerEntry) (*types.LedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *ledgerEntryRepo) History(ctx context.Context, tx *gorm.DB, filter HistoryFilter) ([]*types.LedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.LedgerEntry{})
	if filter.CircleID != uuid.Nil {
		q = q.Where("circle_id = ?", filter.CircleID)
	}
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var entries []*types.LedgerEntry
	if err := q.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerEntryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LedgerEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entries []*types.LedgerEntry
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerEntryRepo) CountByCircleAndType(ctx context.Context, tx *gorm.DB, circleID uuid.UUID, entryType types.LedgerEntryType) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LedgerEntry{}).
		Where("circle_id = ? AND type = ?", circleID, entryType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
