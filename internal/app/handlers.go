package app

import (
	"github.com/osusuapp/osusu-backend/internal/handlers"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Circle *handlers.CircleHandler
	Member *handlers.MemberHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		Auth:   handlers.NewAuthHandler(s.Auth),
		User:   handlers.NewUserHandler(s.User, s.Ledger),
		Circle: handlers.NewCircleHandler(s.Circle, s.Join, s.Round, s.Payout, s.Ledger, s.Event),
		Member: handlers.NewMemberHandler(s.Membership),
	}
}
