package app

import (
	"strings"
	"time"

	"github.com/osusuapp/osusu-backend/internal/logger"
	"github.com/osusuapp/osusu-backend/internal/utils"
)

type Config struct {
	HTTPPort          string
	JWTSecretKey      string
	AccessTokenTTL    time.Duration
	WorkerConcurrency int
	RedisAddr         string
	RedisChannel      string
	AllowOrigins      []string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	return Config{
		HTTPPort:          utils.GetEnv("HTTP_PORT", "8080", log),
		JWTSecretKey:      jwtSecretKey,
		AccessTokenTTL:    time.Duration(accessTokenTTLSeconds) * time.Second,
		WorkerConcurrency: utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		RedisAddr:         utils.GetEnv("REDIS_ADDR", "", log),
		RedisChannel:      utils.GetEnv("REDIS_CHANNEL", "circle_events", log),
		AllowOrigins:      origins,
	}
}
