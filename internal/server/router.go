package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/osusuapp/osusu-backend/internal/handlers"
	"github.com/osusuapp/osusu-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	UserHandler    *handlers.UserHandler
	CircleHandler  *handlers.CircleHandler
	MemberHandler  *handlers.MemberHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.GET("/ledger", cfg.UserHandler.GetMyLedger)

	protected.POST("/circles", cfg.CircleHandler.Create)
	protected.GET("/circles", cfg.CircleHandler.ListMine)
	protected.GET("/circles/:id", cfg.CircleHandler.Get)
	protected.POST("/circles/:id/join", cfg.CircleHandler.Join)
	protected.POST("/circles/:id/activate", cfg.CircleHandler.Activate)
	protected.POST("/circles/:id/pause", cfg.CircleHandler.Pause)
	protected.POST("/circles/:id/resume", cfg.CircleHandler.Resume)
	protected.GET("/circles/:id/ledger", cfg.CircleHandler.GetLedger)
	protected.GET("/circles/:id/events", cfg.CircleHandler.GetEvents)

	protected.GET("/circles/:id/rounds/ready", cfg.CircleHandler.RoundReady)
	protected.POST("/circles/:id/rounds/complete", cfg.CircleHandler.CompleteRound)
	protected.POST("/circles/:id/payout-order", cfg.CircleHandler.AssignPayoutOrder)
	protected.POST("/circles/:id/payout-order/randomize", cfg.CircleHandler.RandomizePayoutOrder)

	protected.GET("/circles/:id/members", cfg.MemberHandler.List)
	protected.POST("/circles/:id/members/:userId/approve", cfg.MemberHandler.Approve)
	protected.POST("/circles/:id/members/:userId/reject", cfg.MemberHandler.Reject)
	protected.POST("/circles/:id/members/:userId/remove", cfg.MemberHandler.Remove)
	protected.POST("/circles/:id/members/:userId/confirm", cfg.MemberHandler.ConfirmReceipt)
	protected.POST("/circles/:id/members/:userId/finalize", cfg.MemberHandler.Finalize)
	protected.POST("/circles/:id/members/:userId/mark-unpaid", cfg.MemberHandler.MarkUnpaid)
	protected.POST("/circles/:id/payments/mark-paid", cfg.MemberHandler.MarkPaid)
	protected.POST("/circles/:id/flag-overdue", cfg.MemberHandler.FlagOverdue)

	return router
}
