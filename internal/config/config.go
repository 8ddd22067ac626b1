package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/qrhunt.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	// RedisURL switches the leaderboard cache to Redis when set.
	RedisURL       string        `env:"REDIS_URL"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"3s"`

	PresenceTimeout time.Duration `env:"PRESENCE_TIMEOUT" envDefault:"30s"`
	PresenceSweep   time.Duration `env:"PRESENCE_SWEEP" envDefault:"5s"`
	SSEPingInterval time.Duration `env:"SSE_PING_INTERVAL" envDefault:"30s"`

	JWTSecret    string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TeamTokenTTL time.Duration `env:"TEAM_TOKEN_TTL" envDefault:"12h"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@qrhunt.local"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"changeme"`
}

func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.LeaderboardTTL <= 0 {
		return errors.New("LEADERBOARD_TTL must be positive")
	}
	if c.PresenceTimeout <= 0 || c.PresenceSweep <= 0 {
		return errors.New("PRESENCE_TIMEOUT and PRESENCE_SWEEP must be positive")
	}
	if c.SSEPingInterval <= 0 {
		return errors.New("SSE_PING_INTERVAL must be positive")
	}
	if len(c.JWTSecret) < 8 {
		return errors.New("JWT_SECRET must be at least 8 characters")
	}
	return nil
}
