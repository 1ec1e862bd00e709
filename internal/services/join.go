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

// JoinService is the admission gate. The count-then-insert sequence runs
// under the circle row lock so two concurrent joins racing for the last
// seat resolve to exactly one success and one CircleFull; the unique
// (circle, user) index is the backstop that makes a lost race idempotent
// instead of a duplicate row.
type JoinService interface {
	// Join returns the member row and whether it already existed.
	// Re-joining is idempotent and never fails with CircleFull.
	Join(ctx context.Context, circleID, userID uuid.UUID, preference types.PayoutPreference) (*types.Member, bool, error)
}

type joinService struct {
	db         *gorm.DB
	log        *logger.Logger
	circleRepo repos.CircleRepo
	memberRepo repos.MemberRepo
	events     EventService
}

func NewJoinService(db *gorm.DB, baseLog *logger.Logger, circleRepo repos.CircleRepo, memberRepo repos.MemberRepo, events EventService) JoinService {
	return &joinService{
		db:         db,
		log:        baseLog.With("service", "JoinService"),
		circleRepo: circleRepo,
		memberRepo: memberRepo,
		events:     events,
	}
}

func (s *joinService) Join(ctx context.Context, circleID, userID uuid.UUID, preference types.PayoutPreference) (*types.Member, bool, error) {
	if circleID == uuid.Nil || userID == uuid.Nil {
		return nil, false, apperr.Validation(apperr.CodeInvalidInput, "circle and user are required")
	}
	switch preference {
	case types.PreferEarly, types.PreferLate, types.PreferAny:
	case "":
		preference = types.PreferAny
	default:
		return nil, false, apperr.Validation(apperr.CodeInvalidInput, "unknown payout preference")
	}

	var (
		member  *types.Member
		existed bool
		event   *types.CircleEvent
	)
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		member, existed, event = nil, false, nil

		circle, err := s.circleRepo.GetByIDForUpdate(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		if circle == nil {
			return apperr.StateConflict(apperr.CodeNotFound, "circle not found")
		}

		existing, err := s.memberRepo.GetByCircleAndUser(ctx, tx, circleID, userID)
		if err != nil {
			return apperr.Persistence(err)
		}
		if existing != nil {
			member, existed = existing, true
			return nil
		}

		count, err := s.memberRepo.CountByCircle(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		if count >= int64(circle.MaxMembers) {
			return apperr.StateConflict(apperr.CodeCircleFull, "circle is at capacity")
		}

		created, err := s.memberRepo.Create(ctx, tx, &types.Member{
			ID:               uuid.New(),
			CircleID:         circleID,
			UserID:           userID,
			Role:             types.MemberRoleMember,
			Status:           types.MemberRequested,
			PayoutPreference: preference,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		})
		if err != nil {
			if isUniqueViolation(err) {
				// Lost a race we could not observe under this isolation
				// level; the row exists now, which is what we wanted.
				raced, rErr := s.memberRepo.GetByCircleAndUser(ctx, tx, circleID, userID)
				if rErr != nil || raced == nil {
					return apperr.Persistence(err)
				}
				member, existed = raced, true
				return nil
			}
			return apperr.Persistence(err)
		}
		member = created

		event, err = s.events.Record(ctx, tx, circleID, &userID, types.EventJoin, "requested to join", nil)
		if err != nil {
			return apperr.Persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.events.Broadcast(ctx, event)
	return member, existed, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed")
}
