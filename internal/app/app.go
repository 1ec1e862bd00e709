package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/osusuapp/osusu-backend/internal/db"
	"github.com/osusuapp/osusu-backend/internal/jobs"
	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/realtime"
	"github.com/osusuapp/osusu-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Bus      realtime.Bus
	Worker   *jobs.Worker
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	bus := wireBus(log, cfg)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, bus)
	handlerset := wireHandlers(serviceset)
	middlewareset := wireMiddleware(log, serviceset)

	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    handlerset.Auth,
		AuthMiddleware: middlewareset.Auth,
		UserHandler:    handlerset.User,
		CircleHandler:  handlerset.Circle,
		MemberHandler:  handlerset.Member,
		AllowOrigins:   cfg.AllowOrigins,
	})

	worker := jobs.NewWorker(theDB, log, reposet.ScoreJob, serviceset.Trust)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Bus:      bus,
		Worker:   worker,
	}, nil
}

func wireBus(log *logger.Logger, cfg Config) realtime.Bus {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, circle events will not be broadcast")
		return realtime.NewNoopBus()
	}
	bus, err := realtime.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		log.Warn("Redis bus init failed, falling back to noop bus", "error", err)
		return realtime.NewNoopBus()
	}
	return bus
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Worker != nil {
		a.Worker.Start(ctx, a.Cfg.WorkerConcurrency)
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.HTTPPort)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
