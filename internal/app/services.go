package app

import (
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/realtime"
	"github.com/osusuapp/osusu-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	User       services.UserService
	Ledger     services.LedgerService
	Trust      services.TrustService
	Event      services.EventService
	Circle     services.CircleService
	Join       services.JoinService
	Membership services.MembershipService
	Round      services.RoundService
	Payout     services.PayoutService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, bus realtime.Bus) Services {
	log.Info("Wiring services...")
	ledger := services.NewLedgerService(db, log, r.LedgerEntry, r.ScoreJob)
	event := services.NewEventService(db, log, r.CircleEvent, bus)
	return Services{
		Auth:       services.NewAuthService(db, log, r.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		User:       services.NewUserService(db, log, r.User),
		Ledger:     ledger,
		Trust:      services.NewTrustService(db, log, r.LedgerEntry, r.User),
		Event:      event,
		Circle:     services.NewCircleService(db, log, r.Circle, r.Member, r.User, ledger, event),
		Join:       services.NewJoinService(db, log, r.Circle, r.Member, event),
		Membership: services.NewMembershipService(db, log, r.Circle, r.Member, r.User, r.LedgerEntry, ledger, event),
		Round:      services.NewRoundService(db, log, r.Circle, r.Member, r.User, r.LedgerEntry, ledger, event),
		Payout:     services.NewPayoutService(db, log, r.Circle, r.Member, r.User),
	}
}
