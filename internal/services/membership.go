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

// MembershipService drives the per-member status machine:
//
//	requested -> pending -> paid_pending -> recipient_verified -> paid
//
// with late reachable from pending, and removal (row deletion) terminal.
// Every transition appends its ledger entry and updates the cached status
// inside one serialized transaction on the circle row.
type MembershipService interface {
	Approve(ctx context.Context, circleID, memberUserID, actorID uuid.UUID) error
	Reject(ctx context.Context, circleID, memberUserID, actorID uuid.UUID) error
	MarkPaid(ctx context.Context, circleID, userID uuid.UUID) error
	MarkUnpaid(ctx context.Context, circleID, memberUserID, actorID uuid.UUID, reason string) error
	ConfirmReceipt(ctx context.Context, circleID, payerUserID, actorID uuid.UUID) error
	Finalize(ctx context.Context, circleID, payerUserID, actorID uuid.UUID) error
	Remove(ctx context.Context, circleID, memberUserID, actorID uuid.UUID, reason string) error
	FlagOverdue(ctx context.Context, circleID, actorID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, circleID uuid.UUID) ([]*types.Member, error)
}

type membershipService struct {
	db         *gorm.DB
	log        *logger.Logger
	circleRepo repos.CircleRepo
	memberRepo repos.MemberRepo
	userRepo   repos.UserRepo
	entryRepo  repos.LedgerEntryRepo
	ledger     LedgerService
	events     EventService
}

func NewMembershipService(
	db *gorm.DB,
	baseLog *logger.Logger,
	circleRepo repos.CircleRepo,
	memberRepo repos.MemberRepo,
	userRepo repos.UserRepo,
	entryRepo repos.LedgerEntryRepo,
	ledger LedgerService,
	events EventService,
) MembershipService {
	return &membershipService{
		db:         db,
		log:        baseLog.With("service", "MembershipService"),
		circleRepo: circleRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		entryRepo:  entryRepo,
		ledger:     ledger,
		events:     events,
	}
}

// lockCircleAndMember starts every transition: serializing lock on the
// circle row, then the member row under it.
func (s *membershipService) lockCircleAndMember(ctx context.Context, tx *gorm.DB, circleID, userID uuid.UUID) (*types.Circle, *types.Member, error) {
	circle, err := s.circleRepo.GetByIDForUpdate(ctx, tx, circleID)
	if err != nil {
		return nil, nil, apperr.Persistence(err)
	}
	if circle == nil {
		return nil, nil, apperr.StateConflict(apperr.CodeNotFound, "circle not found")
	}
	member, err := s.memberRepo.GetByCircleAndUser(ctx, tx, circleID, userID)
	if err != nil {
		return nil, nil, apperr.Persistence(err)
	}
	if member == nil {
		return nil, nil, apperr.StateConflict(apperr.CodeNotFound, "not a member of this circle")
	}
	return circle, member, nil
}

func (s *membershipService) currentRound(ctx context.Context, tx *gorm.DB, circleID uuid.UUID) (int, error) {
	payouts, err := s.entryRepo.CountByCircleAndType(ctx, tx, circleID, types.EntryPayoutDistributed)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	return int(payouts) + 1, nil
}

func (s *membershipService) Approve(ctx context.Context, circleID, memberUserID, actorID uuid.UUID) error {
	var event *types.CircleEvent
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, member, err := s.lockCircleAndMember(ctx, tx, circleID, memberUserID)
		if err != nil {
			return err
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if member.Status != types.MemberRequested {
			return apperr.StateConflict(apperr.CodeBadTransition, "member is not awaiting approval")
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:     types.EntryMemberApproved,
			CircleID: &circleID,
			UserID:   &memberUserID,
			AdminID:  &actorID,
			Round:    round,
		}); err != nil {
			return err
		}
		if err := s.memberRepo.UpdateStatus(ctx, tx, member.ID, types.MemberPending); err != nil {
			return apperr.Persistence(err)
		}
		event, err = s.events.Record(ctx, tx, circleID, &memberUserID, types.EventJoin, "join request approved", nil)
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

func (s *membershipService) Reject(ctx context.Context, circleID, memberUserID, actorID uuid.UUID) error {
	return runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, member, err := s.lockCircleAndMember(ctx, tx, circleID, memberUserID)
		if err != nil {
			return err
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if member.Status != types.MemberRequested {
			return apperr.StateConflict(apperr.CodeBadTransition, "only pending join requests can be rejected")
		}
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:     types.EntryMemberRejected,
			CircleID: &circleID,
			UserID:   &memberUserID,
			AdminID:  &actorID,
		}); err != nil {
			return err
		}
		// Rejection is destructive: the row is deleted, not soft-flagged.
		if err := s.memberRepo.Delete(ctx, tx, member.ID); err != nil {
			return apperr.Persistence(err)
		}
		return nil
	})
}

func (s *membershipService) MarkPaid(ctx context.Context, circleID, userID uuid.UUID) error {
	var event *types.CircleEvent
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, member, err := s.lockCircleAndMember(ctx, tx, circleID, userID)
		if err != nil {
			return err
		}
		switch member.Status {
		case types.MemberRequested:
			return apperr.StateConflict(apperr.CodeNotApproved, "join request has not been approved yet")
		case types.MemberPaidPending, types.MemberRecipientVerified, types.MemberPaid:
			return apperr.StateConflict(apperr.CodeBadTransition, "contribution already marked for this round")
		case types.MemberPending, types.MemberLate:
			// allowed
		default:
			return apperr.StateConflict(apperr.CodeBadTransition, fmt.Sprintf("cannot mark paid from status %s", member.Status))
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		amount := circle.Amount
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:      types.EntryContributionMarked,
			Direction: types.DirectionCredit,
			Amount:    &amount,
			CircleID:  &circleID,
			UserID:    &userID,
			Round:     round,
		}); err != nil {
			return err
		}
		if err := s.memberRepo.UpdateStatus(ctx, tx, member.ID, types.MemberPaidPending); err != nil {
			return apperr.Persistence(err)
		}
		event, err = s.events.Record(ctx, tx, circleID, &userID, types.EventPayment, "contribution marked paid", map[string]any{"round": round})
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

func (s *membershipService) MarkUnpaid(ctx context.Context, circleID, memberUserID, actorID uuid.UUID, reason string) error {
	return runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, member, err := s.lockCircleAndMember(ctx, tx, circleID, memberUserID)
		if err != nil {
			return err
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if member.Status != types.MemberPaidPending {
			return apperr.StateConflict(apperr.CodeBadTransition, "only an unconfirmed payment can be marked unpaid")
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		amount := circle.Amount
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:      types.EntryContributionUnmarked,
			Direction: types.DirectionDebit,
			Amount:    &amount,
			CircleID:  &circleID,
			UserID:    &memberUserID,
			AdminID:   &actorID,
			Round:     round,
			Reason:    reason,
		}); err != nil {
			return err
		}
		return apperrWrap(s.memberRepo.UpdateStatus(ctx, tx, member.ID, types.MemberPending))
	})
}

func (s *membershipService) ConfirmReceipt(ctx context.Context, circleID, payerUserID, actorID uuid.UUID) error {
	var event *types.CircleEvent
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, payer, err := s.lockCircleAndMember(ctx, tx, circleID, payerUserID)
		if err != nil {
			return err
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		recipient, err := s.memberRepo.GetByPayoutMonth(ctx, tx, circleID, round)
		if err != nil {
			return apperr.Persistence(err)
		}
		if recipient == nil || recipient.UserID != actorID {
			return apperr.Authorization("only this round's payout recipient may confirm receipt")
		}
		if payer.Status != types.MemberPaidPending {
			return apperr.StateConflict(apperr.CodeBadTransition, "member has no unconfirmed payment")
		}
		amount := circle.Amount
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:      types.EntryContributionConfirmed,
			Direction: types.DirectionCredit,
			Amount:    &amount,
			CircleID:  &circleID,
			UserID:    &payerUserID,
			Round:     round,
		}); err != nil {
			return err
		}
		if err := s.memberRepo.UpdateStatus(ctx, tx, payer.ID, types.MemberRecipientVerified); err != nil {
			return apperr.Persistence(err)
		}
		event, err = s.events.Record(ctx, tx, circleID, &payerUserID, types.EventPayment, "contribution receipt confirmed", map[string]any{"round": round})
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

func (s *membershipService) Finalize(ctx context.Context, circleID, payerUserID, actorID uuid.UUID) error {
	return runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, payer, err := s.lockCircleAndMember(ctx, tx, circleID, payerUserID)
		if err != nil {
			return err
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if payer.Status != types.MemberRecipientVerified {
			return apperr.StateConflict(apperr.CodeBadTransition, "payment has not been verified by the recipient")
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:     types.EntryContributionFinalized,
			CircleID: &circleID,
			UserID:   &payerUserID,
			AdminID:  &actorID,
			Round:    round,
		}); err != nil {
			return err
		}
		return apperrWrap(s.memberRepo.UpdateStatus(ctx, tx, payer.ID, types.MemberPaid))
	})
}

func (s *membershipService) Remove(ctx context.Context, circleID, memberUserID, actorID uuid.UUID, reason string) error {
	return runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		circle, member, err := s.lockCircleAndMember(ctx, tx, circleID, memberUserID)
		if err != nil {
			return err
		}
		if err := requireCircleAdmin(ctx, tx, s.userRepo, circle, actorID); err != nil {
			return err
		}
		if memberUserID == circle.AdminID {
			return apperr.StateConflict(apperr.CodeBadTransition, "the circle admin cannot be removed")
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Append(ctx, tx, AppendInput{
			Type:     types.EntryMemberRemoved,
			CircleID: &circleID,
			UserID:   &memberUserID,
			AdminID:  &actorID,
			Round:    round,
			Reason:   reason,
		}); err != nil {
			return err
		}
		return apperrWrap(s.memberRepo.Delete(ctx, tx, member.ID))
	})
}

// FlagOverdue moves every still-pending member to late and records the
// overdue penalty entry for each. Returns how many members were flagged.
func (s *membershipService) FlagOverdue(ctx context.Context, circleID, actorID uuid.UUID) (int, error) {
	flagged := 0
	err := runSerialized(ctx, s.db, func(tx *gorm.DB) error {
		flagged = 0
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
		if circle.Status != types.CircleActive {
			return apperr.StateConflict(apperr.CodeBadTransition, "circle is not active")
		}
		round, err := s.currentRound(ctx, tx, circleID)
		if err != nil {
			return err
		}
		members, err := s.memberRepo.ListByCircle(ctx, tx, circleID)
		if err != nil {
			return apperr.Persistence(err)
		}
		for _, m := range members {
			if m.Status != types.MemberPending {
				continue
			}
			userID := m.UserID
			if _, err := s.ledger.Append(ctx, tx, AppendInput{
				Type:      types.EntryContributionOverdue,
				Direction: types.DirectionDebit,
				CircleID:  &circleID,
				UserID:    &userID,
				AdminID:   &actorID,
				Round:     round,
				Reason:    "contribution overdue",
			}); err != nil {
				return err
			}
			if err := s.memberRepo.UpdateStatus(ctx, tx, m.ID, types.MemberLate); err != nil {
				return apperr.Persistence(err)
			}
			flagged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

func (s *membershipService) ListMembers(ctx context.Context, circleID uuid.UUID) ([]*types.Member, error) {
	members, err := s.memberRepo.ListByCircle(ctx, nil, circleID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return members, nil
}

func apperrWrap(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Persistence(err)
}
