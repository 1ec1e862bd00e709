package services

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// PayoutService persists the rotation order. It is strategy-agnostic:
// AssignOrder takes whatever ordering the caller built (manual drag or
// shuffle) and writes each member's 1-based position as payoutMonth.
//
// An assignment replaces the whole rotation: every previous slot in the
// circle is cleared before the new positions are written, so a member
// left off the list loses their slot rather than silently colliding
// with a new holder of the same month. Duplicates and non-members are
// rejected outright. Months within a circle are therefore always
// unique, which the composite (circle, payout_month) index enforces as
// a backstop.
type PayoutService interface {
	AssignOrder(ctx context.Context, circleID uuid.UUID, orderedUserIDs []uuid.UUID, actorID uuid.UUID) error
	// RandomizeOrder shuffles the approved members, honoring payout
	// preferences: early-preference members land before any/late ones.
	RandomizeOrder(ctx context.Context, circleID, actorID uuid.UUID) ([]uuid.UUID, error)
}

type payoutService struct {
	db         *gorm.DB
	log        *logger.Logger
	circleRepo repos.CircleRepo
	memberRepo repos.MemberRepo
	userRepo   repos.UserRepo
}

func NewPayoutService(db *gorm.DB, baseLog *logger.Logger, circleRepo repos.CircleRepo, memberRepo repos.MemberRepo, userRepo repos.UserRepo) PayoutService {
	return &payoutService{
		db:         db,
		log:        baseLog.With("service", "PayoutService"),
		circleRepo: circleRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
	}
}

func (s *payoutService) AssignOrder(ctx context.Context, circleID uuid.UUID, orderedUserIDs []uuid.UUID, actorID uuid.UUID) error {
	if len(orderedUserIDs) == 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "ordering is empty")
	}
	seen := make(map[uuid.UUID]bool, len(orderedUserIDs))
	for _, id := range orderedUserIDs {
		if seen[id] {
			return apperr.Validation(apperr.CodeInvalidInput, "ordering contains a duplicate member")
		}
		seen[id] = true
	}

	return runSerialized(ctx, s.db, func(tx *gorm.DB) error {
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
		members, err := s.memberRepo.ListByCircle(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		byUser := make(map[uuid.UUID]*types.Member, len(members))
		for _, m := range members {
			byUser[m.UserID] = m
		}
		for _, userID := range orderedUserIDs {
			if _, ok := byUser[userID]; !ok {
				return apperr.Validation(apperr.CodeInvalidInput, "ordering names a user who is not a member")
			}
		}
		if err := s.memberRepo.ClearPayoutMonths(ctx, tx, circleID); err != nil {
			return apperr.Persistence(err)
		}
		for position, userID := range orderedUserIDs {
			if err := s.memberRepo.UpdatePayoutMonth(ctx, tx, byUser[userID].ID, position+1); err != nil {
				return apperr.Persistence(err)
			}
		}
		return nil
	})
}

func (s *payoutService) RandomizeOrder(ctx context.Context, circleID, actorID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.memberRepo.ListByCircle(ctx, nil, circleID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	var early, mid, late []uuid.UUID
	for _, m := range members {
		if m.Status == types.MemberRequested {
			continue
		}
		switch m.PayoutPreference {
		case types.PreferEarly:
			early = append(early, m.UserID)
		case types.PreferLate:
			late = append(late, m.UserID)
		default:
			mid = append(mid, m.UserID)
		}
	}
	if len(early)+len(mid)+len(late) == 0 {
		return nil, apperr.StateConflict(apperr.CodeRoundNotReady, "circle has no approved members to order")
	}

	shuffle := func(ids []uuid.UUID) {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}
	shuffle(early)
	shuffle(mid)
	shuffle(late)

	ordered := make([]uuid.UUID, 0, len(early)+len(mid)+len(late))
	ordered = append(ordered, early...)
	ordered = append(ordered, mid...)
	ordered = append(ordered, late...)

	if err := s.AssignOrder(ctx, circleID, ordered, actorID); err != nil {
		return nil, err
	}
	return ordered, nil
}
