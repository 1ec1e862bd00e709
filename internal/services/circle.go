package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type CreateCircleInput struct {
	Name       string
	Amount     int64
	Frequency  types.CircleFrequency
	MaxMembers int
	Duration   int
}

// CircleService owns the circle lifecycle: recruiting -> active ->
// completed, with paused as the only reversible detour. Completion is
// driven by the round controller, not here.
type CircleService interface {
	Create(ctx context.Context, adminID uuid.UUID, in CreateCircleInput) (*types.Circle, error)
	GetByID(ctx context.Context, circleID uuid.UUID) (*types.Circle, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*types.Circle, error)
	Activate(ctx context.Context, circleID, actorID uuid.UUID) error
	Pause(ctx context.Context, circleID, actorID uuid.UUID) error
	Resume(ctx context.Context, circleID, actorID uuid.UUID) error
}

type circleService struct {
	db         *gorm.DB
	log        *logger.Logger
	circleRepo repos.CircleRepo
	memberRepo repos.MemberRepo
	userRepo   repos.UserRepo
	ledger     LedgerService
	events     EventService
}

func NewCircleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	circleRepo repos.CircleRepo,
	memberRepo repos.MemberRepo,
	userRepo repos.UserRepo,
	ledger LedgerService,
	events EventService,
) CircleService {
	return &circleService{
		db:         db,
		log:        baseLog.With("service", "CircleService"),
		circleRepo: circleRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		ledger:     ledger,
		events:     events,
	}
}

func (s *circleService) Create(ctx context.Context, adminID uuid.UUID, in CreateCircleInput) (*types.Circle, error) {
	if adminID == uuid.Nil {
		return nil, apperr.Authorization("actor is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "circle name is required")
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidAmount, "contribution amount must be positive")
	}
	if in.MaxMembers < 2 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "a circle needs at least two seats")
	}
	if in.Duration < 1 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "duration must be at least one round")
	}
	frequency := in.Frequency
	if frequency == "" {
		frequency = types.FrequencyMonthly
	}

	circle := &types.Circle{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		AdminID:    adminID,
		Amount:     in.Amount,
		Frequency:  frequency,
		MaxMembers: in.MaxMembers,
		Duration:   in.Duration,
		Status:     types.CircleRecruiting,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.circleRepo.Create(ctx, tx, circle); err != nil {
			return apperr.Persistence(err)
		}
		// The creator is seated immediately as the admin member; no join
		// request round-trip for their own circle.
		if _, err := s.memberRepo.Create(ctx, tx, &types.Member{
			ID:               uuid.New(),
			CircleID:         circle.ID,
			UserID:           adminID,
			Role:             types.MemberRoleAdmin,
			Status:           types.MemberPending,
			PayoutPreference: types.PreferAny,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		}); err != nil {
			return apperr.Persistence(err)
		}
		circleID := circle.ID
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:     types.EntryCircleCreated,
			CircleID: &circleID,
			UserID:   &adminID,
			AdminID:  &adminID,
		}); err != nil {
			return err
		}
		if _, err := s.events.Record(ctx, tx, circle.ID, &adminID, types.EventInfo, "circle created", nil); err != nil {
			return apperr.Persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return circle, nil
}

func (s *circleService) GetByID(ctx context.Context, circleID uuid.UUID) (*types.Circle, error) {
	circle, err := s.circleRepo.GetByID(ctx, nil, circleID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if circle == nil {
		return nil, apperr.StateConflict(apperr.CodeNotFound, "circle not found")
	}
	return circle, nil
}

func (s *circleService) ListMine(ctx context.Context, userID uuid.UUID) ([]*types.Circle, error) {
	circles, err := s.circleRepo.ListByMember(ctx, nil, userID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return circles, nil
}

func (s *circleService) transition(ctx context.Context, circleID, actorID uuid.UUID, from, to types.CircleStatus, guard func(tx *gorm.DB, circle *types.Circle) error) error {
	var event *types.CircleEvent
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		event = nil
		circle, err := s.circleRepo.GetByIDForUpdate(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		if circle == nil {
			return apperr.StateConflict(apperr.CodeNotFound, "circle not found")
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if circle.Status != from {
			return apperr.StateConflict(apperr.CodeBadTransition, "circle is not "+string(from))
		}
		if guard != nil {
			if err := guard(tx, circle); err != nil {
				return err
			}
		}
		if err := s.circleRepo.UpdateStatus(ctx, tx, circleID, to); err != nil {
			return apperr.Persistence(err)
		}
		event, err = s.events.Record(ctx, tx, circleID, &actorID, types.EventInfo, "circle "+string(to), nil)
		if err != nil {
			return apperr.Persistence(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.events.Broadcast(ctx, event)
	return nil
}

// Activate requires every approved member to hold a rotation slot, so
// round 1 always has a well-defined recipient.
func (s *circleService) Activate(ctx context.Context, circleID, actorID uuid.UUID) error {
	return s.transition(ctx, circleID, actorID, types.CircleRecruiting, types.CircleActive, func(tx *gorm.DB, circle *types.Circle) error {
		members, err := s.memberRepo.ListByCircle(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		approved := 0
		for _, m := range members {
			if m.Status == types.MemberRequested {
				continue
			}
			approved++
			if m.PayoutMonth == nil {
				return apperr.StateConflict(apperr.CodeBadTransition, "assign the payout order before activating")
			}
		}
		if approved < 2 {
			return apperr.StateConflict(apperr.CodeBadTransition, "a circle needs at least two approved members to start")
		}
		return nil
	})
}

func (s *circleService) Pause(ctx context.Context, circleID, actorID uuid.UUID) error {
	return s.transition(ctx, circleID, actorID, types.CircleActive, types.CirclePaused, nil)
}

func (s *circleService) Resume(ctx context.Context, circleID, actorID uuid.UUID) error {
	return s.transition(ctx, circleID, actorID, types.CirclePaused, types.CircleActive, nil)
}
