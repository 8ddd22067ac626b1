package leaderboard_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/qrhunt/internal/hunt"
	"github.com/playperu/qrhunt/internal/leaderboard"
	"github.com/playperu/qrhunt/internal/testutil"
)

func TestServiceBuildsBoard(t *testing.T) {
	st := testutil.OpenStore(t)
	h := testutil.SeedHunt(t, st, "board", 2)
	ctx := context.Background()
	now := time.Now()

	st.InsertScan(ctx, hunt.Scan{GameID: h.Game.ID, TeamID: h.Teams[1].ID, NodeID: h.Start.ID, PointsAwarded: 100, ScannedAt: now})
	st.InsertScan(ctx, hunt.Scan{GameID: h.Game.ID, TeamID: h.Teams[1].ID, NodeID: h.Riddle.ID, PointsAwarded: 120, ScannedAt: now.Add(time.Minute)})
	st.InsertHintUsage(ctx, hunt.HintUsage{GameID: h.Game.ID, TeamID: h.Teams[1].ID, NodeID: h.Riddle.ID, PointsDeducted: 60, UsedAt: now})

	svc := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Minute), slog.Default())
	b, err := svc.Board(ctx, "board")
	if err != nil {
		t.Fatalf("Board: %v", err)
	}

	if b.Game.ID != h.Game.ID || b.Game.Status != "draft" {
		t.Errorf("unexpected game summary: %+v", b.Game)
	}
	if len(b.Leaderboard) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(b.Leaderboard))
	}
	top := b.Leaderboard[0]
	if top.TeamName != "Team B" || top.TotalPoints != 160 || top.NodesFound != 2 || top.CurrentClue != "Clock Tower" {
		t.Errorf("unexpected leader: %+v", top)
	}
	if b.Leaderboard[1].Rank != 2 {
		t.Errorf("second rank = %d, want 2", b.Leaderboard[1].Rank)
	}
}

func TestServiceCachesUntilInvalidated(t *testing.T) {
	st := testutil.OpenStore(t)
	h := testutil.SeedHunt(t, st, "cached", 1)
	ctx := context.Background()

	svc := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Hour), slog.Default())
	if _, err := svc.Board(ctx, "cached"); err != nil {
		t.Fatalf("Board: %v", err)
	}

	st.InsertScan(ctx, hunt.Scan{GameID: h.Game.ID, TeamID: h.Teams[0].ID, NodeID: h.Start.ID, PointsAwarded: 100, ScannedAt: time.Now()})

	b, _ := svc.Board(ctx, "cached")
	if b.Leaderboard[0].TotalPoints != 0 {
		t.Fatalf("expected cached zero score, got %d", b.Leaderboard[0].TotalPoints)
	}

	svc.Invalidate(ctx, "cached")
	b, _ = svc.Board(ctx, "cached")
	if b.Leaderboard[0].TotalPoints != 100 {
		t.Errorf("expected fresh score 100, got %d", b.Leaderboard[0].TotalPoints)
	}
}

func TestServiceConcurrentReaders(t *testing.T) {
	st := testutil.OpenStore(t)
	testutil.SeedHunt(t, st, "storm", 3)
	svc := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Second), slog.Default())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.Board(context.Background(), "storm")
			if err == nil && len(b.Leaderboard) != 3 {
				err = errors.New("short board")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Board: %v", err)
		}
	}
}

func TestServiceUnknownGame(t *testing.T) {
	st := testutil.OpenStore(t)
	svc := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Second), slog.Default())

	if _, err := svc.Board(context.Background(), "ghost"); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestServiceSurvivesRedisOutage(t *testing.T) {
	st := testutil.OpenStore(t)
	testutil.SeedHunt(t, st, "offline", 1)

	rdb := redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   0,
	})
	defer rdb.Close()

	svc := leaderboard.NewService(st, leaderboard.NewRedisCache(rdb, time.Second), slog.Default())
	b, err := svc.Board(context.Background(), "offline")
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(b.Leaderboard) != 1 {
		t.Errorf("expected 1 entry, got %d", len(b.Leaderboard))
	}
}

func TestServiceComputeIgnoresCallerCancellation(t *testing.T) {
	st := testutil.OpenStore(t)
	testutil.SeedHunt(t, st, "cancel", 2)
	cache := leaderboard.NewMemoryCache(time.Minute)
	svc := leaderboard.NewService(st, cache, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := svc.Board(ctx, "cancel")
	if err != nil {
		t.Fatalf("Board with cancelled caller: %v", err)
	}
	if len(b.Leaderboard) != 2 {
		t.Errorf("expected 2 entries, got %d", len(b.Leaderboard))
	}
	if _, ok, _ := cache.Get(context.Background(), "cancel"); !ok {
		t.Error("computed board should be cached")
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := leaderboard.NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "g", leaderboard.Board{Game: leaderboard.GameSummary{Slug: "g"}})

	if _, ok, _ := c.Get(ctx, "g"); !ok {
		t.Fatal("expected hit right after Set")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "g"); ok {
		t.Error("expected miss after TTL")
	}
}
