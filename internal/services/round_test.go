package services

import (
	"context"
	"testing"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

func TestCurrentRoundStartsAtOne(t *testing.T) {
	env := newTestEnv(t)
	circle, _, _, _ := env.activeCircle(t, 100, 3)

	round, err := env.round.CurrentRound(context.Background(), circle.ID)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round != 1 {
		t.Fatalf("want round 1, got %d", round)
	}
}

func TestRoundReadyReportsBlockers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t)
	circle := env.createCircle(t, admin, 100, 5, 3)

	// Recruiting circle is never ready.
	ready, reason, err := env.round.RoundReady(ctx, circle.ID)
	if err != nil {
		t.Fatalf("round ready: %v", err)
	}
	if ready || reason == "" {
		t.Fatalf("want not ready with a reason, got ready=%v reason=%q", ready, reason)
	}

	activeCircle, _, _, _ := env.activeCircle(t, 100, 3)

	// Active but nobody has paid.
	ready, reason, err = env.round.RoundReady(ctx, activeCircle.ID)
	if err != nil {
		t.Fatalf("round ready: %v", err)
	}
	if ready {
		t.Fatalf("want not ready while members owe, reason=%q", reason)
	}
}

func TestForceCompleteRoundNotReady(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, _, _ := env.activeCircle(t, 100, 3)

	err := env.round.ForceCompleteRound(ctx, circle.ID, admin.ID)
	if !apperr.IsCode(err, apperr.CodeRoundNotReady) {
		t.Fatalf("want RoundNotReady, got %v", err)
	}
}

func TestForceCompleteRoundRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)
	env.payRound(t, circle, admin.ID, admin.ID, admin.ID, m1.ID, m2.ID)

	err := env.round.ForceCompleteRound(ctx, circle.ID, m1.ID)
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("want authorization failure, got %v", err)
	}
}

func TestForceCompleteRoundDistributesAndResets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)

	env.payRound(t, circle, admin.ID, admin.ID, admin.ID, m1.ID, m2.ID)
	if err := env.round.ForceCompleteRound(ctx, circle.ID, admin.ID); err != nil {
		t.Fatalf("complete round: %v", err)
	}

	round, err := env.round.CurrentRound(ctx, circle.ID)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round != 2 {
		t.Fatalf("want round 2 after one payout, got %d", round)
	}

	// The payout entry carries the full pot to round 1's recipient.
	payouts, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		Type:     types.EntryPayoutDistributed,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("want one payout entry, got %d", len(payouts))
	}
	payout := payouts[0]
	if payout.Amount == nil || *payout.Amount != 300 {
		t.Fatalf("want pot of 300, got %v", payout.Amount)
	}
	if payout.UserID == nil || *payout.UserID != admin.ID {
		t.Fatalf("want payout to round 1 recipient, got %v", payout.UserID)
	}

	// Everyone rolls back to pending for the next round.
	for _, userID := range []struct {
		id  string
		got types.MemberStatus
	}{
		{"admin", env.memberStatus(t, circle.ID, admin.ID)},
		{"m1", env.memberStatus(t, circle.ID, m1.ID)},
		{"m2", env.memberStatus(t, circle.ID, m2.ID)},
	} {
		if userID.got != types.MemberPending {
			t.Fatalf("want %s pending after rollover, got %s", userID.id, userID.got)
		}
	}
}

// Full three-member lifecycle: three rounds, one payout each, circle
// completed at the end.
func TestCircleRunsToCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)

	recipients := []*types.User{admin, m1, m2}
	for roundNum, recipient := range recipients {
		env.payRound(t, circle, admin.ID, recipient.ID, admin.ID, m1.ID, m2.ID)

		ready, reason, err := env.round.RoundReady(ctx, circle.ID)
		if err != nil {
			t.Fatalf("round %d ready: %v", roundNum+1, err)
		}
		if !ready {
			t.Fatalf("round %d not ready: %s", roundNum+1, reason)
		}
		if err := env.round.ForceCompleteRound(ctx, circle.ID, admin.ID); err != nil {
			t.Fatalf("complete round %d: %v", roundNum+1, err)
		}
	}

	stored, err := env.circles.GetByID(ctx, nil, circle.ID)
	if err != nil {
		t.Fatalf("get circle: %v", err)
	}
	if stored.Status != types.CircleCompleted {
		t.Fatalf("want completed circle, got %s", stored.Status)
	}

	payouts, err := env.entries.CountByCircleAndType(ctx, nil, circle.ID, types.EntryPayoutDistributed)
	if err != nil {
		t.Fatalf("count payouts: %v", err)
	}
	if payouts != 3 {
		t.Fatalf("want 3 payouts, got %d", payouts)
	}

	// Each recipient got exactly one payout.
	for _, recipient := range recipients {
		history, err := env.ledger.History(ctx, repos.HistoryFilter{
			CircleID: circle.ID,
			UserID:   recipient.ID,
			Type:     types.EntryPayoutDistributed,
		})
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("want one payout for %s, got %d", recipient.ID, len(history))
		}
	}
}

func TestForceCompleteRoundBlockedByJoinRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)
	env.payRound(t, circle, admin.ID, admin.ID, admin.ID, m1.ID, m2.ID)

	// A fresh, unresolved join request blocks the rollover.
	latecomer := env.createUser(t)
	if _, _, err := env.join.Join(ctx, circle.ID, latecomer.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}

	err := env.round.ForceCompleteRound(ctx, circle.ID, admin.ID)
	if !apperr.IsCode(err, apperr.CodeRoundNotReady) {
		t.Fatalf("want RoundNotReady, got %v", err)
	}
}
