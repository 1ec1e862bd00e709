package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

// RoundService derives the circle's current round from the ledger and
// advances it. The round is never stored: it is always one more than the
// number of PAYOUT_DISTRIBUTED entries for the circle.
type RoundService interface {
	CurrentRound(ctx context.Context, circleID uuid.UUID) (int, error)
	// RoundReady is the read-only precondition check, so callers can
	// know in advance whether ForceCompleteRound would succeed.
	RoundReady(ctx context.Context, circleID uuid.UUID) (bool, string, error)
	ForceCompleteRound(ctx context.Context, circleID, actorID uuid.UUID) error
}

type roundService struct {
	db         *gorm.DB
	log        *logger.Logger
	circleRepo repos.CircleRepo
	memberRepo repos.MemberRepo
	userRepo   repos.UserRepo
	entryRepo  repos.LedgerEntryRepo
	ledger     LedgerService
	events     EventService
}

func NewRoundService(
	db *gorm.DB,
	baseLog *logger.Logger,
	circleRepo repos.CircleRepo,
	memberRepo repos.MemberRepo,
	userRepo repos.UserRepo,
	entryRepo repos.LedgerEntryRepo,
	ledger LedgerService,
	events EventService,
) RoundService {
	return &roundService{
		db:         db,
		log:        baseLog.With("service", "RoundService"),
		circleRepo: circleRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		entryRepo:  entryRepo,
		ledger:     ledger,
		events:     events,
	}
}

func (s *roundService) CurrentRound(ctx context.Context, circleID uuid.UUID) (int, error) {
	payouts, err := s.entryRepo.CountByCircleAndType(ctx, nil, circleID, types.EntryPayoutDistributed)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	return int(payouts) + 1, nil
}

// checkReady validates the round-advance preconditions against an
// already loaded circle and member set. Returns an empty string when
// ready.
func checkReady(circle *types.Circle, members []*types.Member) string {
	if circle.Status != types.CircleActive {
		return "circle is not active"
	}
	active := 0
	for _, m := range members {
		switch m.Status {
		case types.MemberRequested:
			return "unresolved join requests remain"
		case types.MemberRecipientVerified:
			return "verified payments have not been finalized"
		case types.MemberPaid:
			active++
		default:
			return fmt.Sprintf("member %s has not paid", m.UserID)
		}
	}
	if active == 0 {
		return "circle has no approved members"
	}
	return ""
}

func (s *roundService) RoundReady(ctx context.Context, circleID uuid.UUID) (bool, string, error) {
	circle, err := s.circleRepo.GetByID(ctx, nil, circleID)
	if err != nil {
		return false, "", apperr.Persistence(err)
	}
	if circle == nil {
		return false, "", apperr.StateConflict(apperr.CodeNotFound, "circle not found")
	}
	members, err := s.memberRepo.ListByCircle(ctx, nil, circleID)
	if err != nil {
		return false, "", apperr.Persistence(err)
	}
	if reason := checkReady(circle, members); reason != "" {
		return false, reason, nil
	}
	return true, "", nil
}

// ForceCompleteRound distributes the round's payout and rolls every
// member back to pending, atomically: the payout entry, the status reset,
// and the round_start event all commit together or not at all. It takes
// the same serializing lock as the join guard, so two concurrent
// force-completes cannot both observe a fully paid member set.
func (s *roundService) ForceCompleteRound(ctx context.Context, circleID, actorID uuid.UUID) error {
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
		members, err := s.memberRepo.ListByCircle(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		if reason := checkReady(circle, members); reason != "" {
			return apperr.StateConflict(apperr.CodeRoundNotReady, reason)
		}

		payouts, err := s.entryRepo.CountByCircleAndType(ctx, tx, circleID, types.EntryPayoutDistributed)
		if err != nil {
			return apperr.Persistence(err)
		}
		round := int(payouts) + 1

		recipient, err := s.memberRepo.GetByPayoutMonth(ctx, tx, circleID, round)
		if err != nil {
			return apperr.Persistence(err)
		}
		if recipient == nil {
			return apperr.StateConflict(apperr.CodeRoundNotReady, fmt.Sprintf("no payout recipient assigned for round %d", round))
		}

		pot := circle.Amount * int64(len(members))
		recipientUserID := recipient.UserID
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:      types.EntryPayoutDistributed,
			Direction: types.DirectionDebit,
			Amount:    &pot,
			CircleID:  &circleID,
			UserID:    &recipientUserID,
			AdminID:   &actorID,
			Round:     round,
		}); err != nil {
			return err
		}

		if err := s.memberRepo.ResetStatuses(ctx, tx, circleID, types.MemberPending); err != nil {
			return apperr.Persistence(err)
		}

		if round >= circle.Duration {
			if err := s.circleRepo.UpdateStatus(ctx, tx, circleID, types.CircleCompleted); err != nil {
				return apperr.Persistence(err)
			}
			event, err = s.events.Record(ctx, tx, circleID, nil, types.EventInfo, "circle completed", map[string]any{"rounds": round})
			if err != nil {
				return apperr.Persistence(err)
			}
			return nil
		}

		event, err = s.events.Record(ctx, tx, circleID, &recipientUserID, types.EventRoundStart,
			fmt.Sprintf("round %d started", round+1), map[string]any{"round": round + 1, "previous_recipient": recipientUserID})
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
