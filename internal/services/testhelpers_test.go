package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/realtime"
	"github.com/osusuapp/osusu-backend/internal/repos"
	"github.com/osusuapp/osusu-backend/internal/types"
)

type testEnv struct {
	db         *gorm.DB
	log        *logger.Logger
	users      repos.UserRepo
	circles    repos.CircleRepo
	members    repos.MemberRepo
	entries    repos.LedgerEntryRepo
	eventsRepo repos.CircleEventRepo
	jobs       repos.ScoreJobRepo

	ledger     LedgerService
	trust      TrustService
	events     EventService
	circle     CircleService
	join       JoinService
	membership MembershipService
	round      RoundService
	payout     PayoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	// One connection: every session sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&types.User{},
		&types.Circle{},
		&types.Member{},
		&types.LedgerEntry{},
		&types.CircleEvent{},
		&types.ScoreJob{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	users := repos.NewUserRepo(db, log)
	circles := repos.NewCircleRepo(db, log)
	members := repos.NewMemberRepo(db, log)
	entries := repos.NewLedgerEntryRepo(db, log)
	eventsRepo := repos.NewCircleEventRepo(db, log)
	jobs := repos.NewScoreJobRepo(db, log)

	ledger := NewLedgerService(db, log, entries, jobs)
	events := NewEventService(db, log, eventsRepo, realtime.NewNoopBus())

	return &testEnv{
		db:         db,
		log:        log,
		users:      users,
		circles:    circles,
		members:    members,
		entries:    entries,
		eventsRepo: eventsRepo,
		jobs:       jobs,
		ledger:     ledger,
		trust:      NewTrustService(db, log, entries, users),
		events:     events,
		circle:     NewCircleService(db, log, circles, members, users, ledger, events),
		join:       NewJoinService(db, log, circles, members, events),
		membership: NewMembershipService(db, log, circles, members, users, entries, ledger, events),
		round:      NewRoundService(db, log, circles, members, users, entries, ledger, events),
		payout:     NewPayoutService(db, log, circles, members, users),
	}
}

var userSeq int

func (e *testEnv) createUser(t *testing.T) *types.User {
	t.Helper()
	userSeq++
	user, err := e.users.Create(context.Background(), nil, &types.User{
		ID:         uuid.New(),
		Email:      fmt.Sprintf("user%d@example.com", userSeq),
		Password:   "not-a-real-hash",
		Role:       types.RoleUser,
		TrustScore: types.BaseTrustScore,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) createCircle(t *testing.T, admin *types.User, amount int64, maxMembers, duration int) *types.Circle {
	t.Helper()
	circle, err := e.circle.Create(context.Background(), admin.ID, CreateCircleInput{
		Name:       "test circle",
		Amount:     amount,
		MaxMembers: maxMembers,
		Duration:   duration,
	})
	if err != nil {
		t.Fatalf("create circle: %v", err)
	}
	return circle
}

func (e *testEnv) addApprovedMember(t *testing.T, circle *types.Circle, user *types.User) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := e.join.Join(ctx, circle.ID, user.ID, types.PreferAny); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := e.membership.Approve(ctx, circle.ID, user.ID, circle.AdminID); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

// activeCircle builds a three-member active circle: the admin plus two
// approved members, payout order admin, m1, m2, status active.
func (e *testEnv) activeCircle(t *testing.T, amount int64, duration int) (*types.Circle, *types.User, *types.User, *types.User) {
	t.Helper()
	ctx := context.Background()

	admin := e.createUser(t)
	m1 := e.createUser(t)
	m2 := e.createUser(t)
	circle := e.createCircle(t, admin, amount, 5, duration)
	e.addApprovedMember(t, circle, m1)
	e.addApprovedMember(t, circle, m2)

	order := []uuid.UUID{admin.ID, m1.ID, m2.ID}
	if err := e.payout.AssignOrder(ctx, circle.ID, order, admin.ID); err != nil {
		t.Fatalf("assign order: %v", err)
	}
	if err := e.circle.Activate(ctx, circle.ID, admin.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return circle, admin, m1, m2
}

// payRound walks every listed payer through mark, confirm, finalize for
// the current round. recipientID must be the round's payout recipient.
func (e *testEnv) payRound(t *testing.T, circle *types.Circle, adminID, recipientID uuid.UUID, payerIDs ...uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	for _, payerID := range payerIDs {
		if err := e.membership.MarkPaid(ctx, circle.ID, payerID); err != nil {
			t.Fatalf("mark paid %s: %v", payerID, err)
		}
		if err := e.membership.ConfirmReceipt(ctx, circle.ID, payerID, recipientID); err != nil {
			t.Fatalf("confirm receipt %s: %v", payerID, err)
		}
		if err := e.membership.Finalize(ctx, circle.ID, payerID, adminID); err != nil {
			t.Fatalf("finalize %s: %v", payerID, err)
		}
	}
}

func (e *testEnv) memberStatus(t *testing.T, circleID, userID uuid.UUID) types.MemberStatus {
	t.Helper()
	member, err := e.members.GetByCircleAndUser(context.Background(), nil, circleID, userID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member == nil {
		t.Fatalf("member %s not found in circle %s", userID, circleID)
	}
	return member.Status
}
