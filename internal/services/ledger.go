package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// AppendInput describes one immutable fact to record. Amount, when set,
// must be non-negative; sign is carried by Direction alone.
type AppendInput struct {
	Type      types.LedgerEntryType
	Direction types.LedgerDirection
	Amount    *int64
	CircleID  *uuid.UUID
	UserID    *uuid.UUID
	AdminID   *uuid.UUID
	Round     int
	Reason    string
}

// LedgerService is the single write path for everything the round number
// and trust score are derived from. Appends are durable ledger writes;
// trust recomputation is enqueued as an outbox job in the same transaction
// and applied asynchronously by the worker.
type LedgerService interface {
	Append(ctx context.Context, tx *gorm.DB, in AppendInput) (*types.LedgerEntry, error)
	History(ctx context.Context, filter repos.HistoryFilter) ([]*types.LedgerEntry, error)
}

type ledgerService struct {
	db        *gorm.DB
	log       *logger.Logger
	entryRepo repos.LedgerEntryRepo
	jobRepo   repos.ScoreJobRepo
}

func NewLedgerService(db *gorm.DB, baseLog *logger.Logger, entryRepo repos.LedgerEntryRepo, jobRepo repos.ScoreJobRepo) LedgerService {
	return &ledgerService{
		db:        db,
		log:       baseLog.With("service", "LedgerService"),
		entryRepo: entryRepo,
		jobRepo:   jobRepo,
	}
}

func (s *ledgerService) Append(ctx context.Context, tx *gorm.DB, in AppendInput) (*types.LedgerEntry, error) {
	if in.Type == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "entry type is required")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return nil, apperr.Validation(apperr.CodeInvalidAmount, "ledger amounts must be non-negative")
	}
	direction := in.Direction
	if direction == "" {
		direction = types.DirectionNeutral
	}

	meta := map[string]any{}
	if in.Round > 0 {
		meta["round"] = in.Round
	}
	if in.Reason != "" {
		meta["reason"] = in.Reason
	}
	var metadata datatypes.JSON
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		metadata = datatypes.JSON(raw)
	}

	entry := &types.LedgerEntry{
		ID:        uuid.New(),
		Type:      in.Type,
		Direction: direction,
		Amount:    in.Amount,
		CircleID:  in.CircleID,
		UserID:    in.UserID,
		AdminID:   in.AdminID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	run := func(txx *gorm.DB) error {
		if _, err := s.entryRepo.Append(ctx, txx, entry); err != nil {
			return apperr.Persistence(err)
		}
		if in.Type.TrustTrigger() && in.UserID != nil {
			job := &types.ScoreJob{
				ID:        uuid.New(),
				UserID:    *in.UserID,
				EntryID:   entry.ID,
				Status:    types.ScoreJobQueued,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}
			if _, err := s.jobRepo.Enqueue(ctx, txx, job); err != nil {
				return apperr.Persistence(err)
			}
		}
		return nil
	}

	if tx != nil {
		if err := run(tx); err != nil {
			return nil, err
		}
		return entry, nil
	}
	if err := s.db.WithContext(ctx).Transaction(run); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) History(ctx context.Context, filter repos.HistoryFilter) ([]*types.LedgerEntry, error) {
	entries, err := s.entryRepo.History(ctx, nil, filter)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return entries, nil
}
