package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/qrhunt/internal/config"
	"github.com/playperu/qrhunt/internal/database"
	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/handler/health"
	"github.com/playperu/qrhunt/internal/leaderboard"
	"github.com/playperu/qrhunt/internal/migrations"
	"github.com/playperu/qrhunt/internal/server"
	"github.com/playperu/qrhunt/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	st := store.New(db)
	if err := seedAdmin(ctx, st, cfg, logger); err != nil {
		return err
	}

	deps := map[string]health.Dependency{
		"sqlite": {Checker: health.CheckerFunc(st.Ping)},
	}

	// --- Leaderboard cache: Redis when configured ---
	var cache leaderboard.Cache = leaderboard.NewMemoryCache(cfg.LeaderboardTTL)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		cache = leaderboard.NewRedisCache(rdb, cfg.LeaderboardTTL)
		deps["redis"] = health.Dependency{
			Checker:  health.CheckerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
			Optional: true,
		}
	}

	// --- Game engine ---
	bus := eventbus.New(logger)
	presence := eventbus.NewPresence(bus, cfg.PresenceTimeout, logger)
	boards := leaderboard.NewService(st, cache, logger)
	eng := engine.New(st, boards, bus, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Engine:       eng,
		Boards:       boards,
		Store:        st,
		Admins:       st,
		Bus:          bus,
		Presence:     presence,
		Tokens:       server.NewTokenIssuer(cfg.JWTSecret, cfg.TeamTokenTTL),
		PingInterval: cfg.SSEPingInterval,
		SPADir:       cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, deps).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		return presence.Run(gctx, cfg.PresenceSweep)
	})

	return g.Wait()
}

// seedAdmin creates the bootstrap organizer account on an empty database.
func seedAdmin(ctx context.Context, st *store.SQLiteStore, cfg *config.Config, logger *slog.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	created, err := st.SeedAdmin(ctx, cfg.AdminEmail, string(hash))
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if created {
		logger.Info("seeded admin account", "email", cfg.AdminEmail)
	}
	return nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
