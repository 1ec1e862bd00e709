package services

import (
	"context"
	"testing"

	"github.com/osusuapp/osusu-backend/internal/apperr"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

func TestApproveMovesRequestedToPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t)
	joiner := env.createUser(t)
	circle := env.createCircle(t, admin, 100, 5, 3)

	if _, _, err := env.join.Join(ctx, circle.ID, joiner.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := env.membership.Approve(ctx, circle.ID, joiner.ID, admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := env.memberStatus(t, circle.ID, joiner.ID); got != types.MemberPending {
		t.Fatalf("want pending, got %s", got)
	}

	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		Type:     types.EntryMemberApproved,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one approval entry, got %d", len(history))
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t)
	joiner := env.createUser(t)
	outsider := env.createUser(t)
	circle := env.createCircle(t, admin, 100, 5, 3)

	if _, _, err := env.join.Join(ctx, circle.ID, joiner.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}
	err := env.membership.Approve(ctx, circle.ID, joiner.ID, outsider.ID)
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("want authorization failure, got %v", err)
	}
	// The rejection must leave no trace.
	if got := env.memberStatus(t, circle.ID, joiner.ID); got != types.MemberRequested {
		t.Fatalf("want status unchanged, got %s", got)
	}
}

func TestRejectDeletesMemberRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t)
	joiner := env.createUser(t)
	circle := env.createCircle(t, admin, 100, 5, 3)

	if _, _, err := env.join.Join(ctx, circle.ID, joiner.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := env.membership.Reject(ctx, circle.ID, joiner.ID, admin.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	member, err := env.members.GetByCircleAndUser(ctx, nil, circle.ID, joiner.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member != nil {
		t.Fatal("want member row gone after rejection")
	}
	// The ledger still remembers.
	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		Type:     types.EntryMemberRejected,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one rejection entry, got %d", len(history))
	}
}

func TestMarkPaidBeforeApprovalFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t)
	joiner := env.createUser(t)
	circle := env.createCircle(t, admin, 100, 5, 3)

	if _, _, err := env.join.Join(ctx, circle.ID, joiner.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}
	err := env.membership.MarkPaid(ctx, circle.ID, joiner.ID)
	if !apperr.IsCode(err, apperr.CodeNotApproved) {
		t.Fatalf("want NotApproved, got %v", err)
	}
	if got := env.memberStatus(t, circle.ID, joiner.ID); got != types.MemberRequested {
		t.Fatalf("want status unchanged, got %s", got)
	}
	// No ledger entry may leak from the failed attempt.
	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		Type:     types.EntryContributionMarked,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("want no contribution entries, got %d", len(history))
	}
}

func TestMarkPaidRecordsContributionAtCircleAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, _, m1, _ := env.activeCircle(t, 250, 3)

	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if got := env.memberStatus(t, circle.ID, m1.ID); got != types.MemberPaidPending {
		t.Fatalf("want paid_pending, got %s", got)
	}

	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		UserID:   m1.ID,
		Type:     types.EntryContributionMarked,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one contribution entry, got %d", len(history))
	}
	entry := history[0]
	if entry.Amount == nil || *entry.Amount != 250 {
		t.Fatalf("want amount 250, got %v", entry.Amount)
	}
	if entry.Direction != types.DirectionCredit {
		t.Fatalf("want credit direction, got %s", entry.Direction)
	}
}

func TestMarkPaidTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, _, m1, _ := env.activeCircle(t, 100, 3)

	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	err := env.membership.MarkPaid(ctx, circle.ID, m1.ID)
	if !apperr.IsCode(err, apperr.CodeBadTransition) {
		t.Fatalf("want BadTransition, got %v", err)
	}
}

func TestMarkUnpaidRollsBackToPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, _ := env.activeCircle(t, 100, 3)

	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := env.membership.MarkUnpaid(ctx, circle.ID, m1.ID, admin.ID, "transfer never arrived"); err != nil {
		t.Fatalf("mark unpaid: %v", err)
	}
	if got := env.memberStatus(t, circle.ID, m1.ID); got != types.MemberPending {
		t.Fatalf("want pending, got %s", got)
	}

	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		UserID:   m1.ID,
		Type:     types.EntryContributionUnmarked,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one reversal entry, got %d", len(history))
	}
	if history[0].Direction != types.DirectionDebit {
		t.Fatalf("want debit direction, got %s", history[0].Direction)
	}
}

func TestMarkUnpaidRequiresUnconfirmedPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, _ := env.activeCircle(t, 100, 3)

	err := env.membership.MarkUnpaid(ctx, circle.ID, m1.ID, admin.ID, "")
	if !apperr.IsCode(err, apperr.CodeBadTransition) {
		t.Fatalf("want BadTransition, got %v", err)
	}
}

func TestConfirmReceiptOnlyByRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	// Payout order is admin, m1, m2: the admin receives round 1.
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)

	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	err := env.membership.ConfirmReceipt(ctx, circle.ID, m1.ID, m2.ID)
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("want authorization failure, got %v", err)
	}

	if err := env.membership.ConfirmReceipt(ctx, circle.ID, m1.ID, admin.ID); err != nil {
		t.Fatalf("confirm by recipient: %v", err)
	}
	if got := env.memberStatus(t, circle.ID, m1.ID); got != types.MemberRecipientVerified {
		t.Fatalf("want recipient_verified, got %s", got)
	}
}

func TestFinalizeRequiresVerifiedPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, _ := env.activeCircle(t, 100, 3)

	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	err := env.membership.Finalize(ctx, circle.ID, m1.ID, admin.ID)
	if !apperr.IsCode(err, apperr.CodeBadTransition) {
		t.Fatalf("want BadTransition before verification, got %v", err)
	}

	if err := env.membership.ConfirmReceipt(ctx, circle.ID, m1.ID, admin.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := env.membership.Finalize(ctx, circle.ID, m1.ID, admin.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if got := env.memberStatus(t, circle.ID, m1.ID); got != types.MemberPaid {
		t.Fatalf("want paid, got %s", got)
	}
}

func TestRemoveDeletesRowAndRecordsEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, _ := env.activeCircle(t, 100, 3)

	if err := env.membership.Remove(ctx, circle.ID, m1.ID, admin.ID, "repeated missed payments"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	member, err := env.members.GetByCircleAndUser(ctx, nil, circle.ID, m1.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member != nil {
		t.Fatal("want member row gone after removal")
	}

	history, err := env.ledger.History(ctx, repos.HistoryFilter{
		CircleID: circle.ID,
		Type:     types.EntryMemberRemoved,
	})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("want one removal entry, got %d", len(history))
	}
}

func TestRemoveCircleAdminFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, _, _ := env.activeCircle(t, 100, 3)

	err := env.membership.Remove(ctx, circle.ID, admin.ID, admin.ID, "")
	if !apperr.IsCode(err, apperr.CodeBadTransition) {
		t.Fatalf("want BadTransition, got %v", err)
	}
}

func TestFlagOverdueMovesPendingToLate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	circle, admin, m1, m2 := env.activeCircle(t, 100, 3)

	// m1 already paid; only the admin and m2 are still pending.
	if err := env.membership.MarkPaid(ctx, circle.ID, m1.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	flagged, err := env.membership.FlagOverdue(ctx, circle.ID, admin.ID)
	if err != nil {
		t.Fatalf("flag overdue: %v", err)
	}
	if flagged != 2 {
		t.Fatalf("want 2 flagged, got %d", flagged)
	}
	if got := env.memberStatus(t, circle.ID, m2.ID); got != types.MemberLate {
		t.Fatalf("want late, got %s", got)
	}
	if got := env.memberStatus(t, circle.ID, m1.ID); got != types.MemberPaidPending {
		t.Fatalf("want paid_pending untouched, got %s", got)
	}

	// A late member can still mark paid afterwards.
	if err := env.membership.MarkPaid(ctx, circle.ID, m2.ID); err != nil {
		t.Fatalf("late member mark paid: %v", err)
	}
}
