package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/playperu/qrhunt/internal/hunt"
)

type GameSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	LogoURL string `json:"logoUrl"`
}

// Board is the published leaderboard of one game.
type Board struct {
	Game        GameSummary `json:"game"`
	Leaderboard []Entry     `json:"leaderboard"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Service computes boards from the store behind a Cache. Concurrent misses
// for the same slug share one computation.
type Service struct {
	store  hunt.Store
	cache  Cache
	logger *slog.Logger
	group  singleflight.Group

	// mu orders cache writes against invalidation; gens counts invalidations per slug.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewService(store hunt.Store, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

// Board returns the leaderboard of the game with the given slug.
func (s *Service) Board(ctx context.Context, slug string) (Board, error) {
	b, ok, err := s.cache.Get(ctx, slug)
	if err != nil {
		s.logger.Warn("leaderboard cache read failed", "slug", slug, "error", err)
	}
	if ok {
		return b, nil
	}

	s.mu.Lock()
	gen := s.gens[slug]
	s.mu.Unlock()

	// Shared by every waiting caller, so not bound to the first one's ctx.
	sctx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(fmt.Sprintf("%s#%d", slug, gen), func() (any, error) {
		b, err := s.compute(sctx, slug)
		if err != nil {
			return Board{}, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gens[slug] == gen {
			if err := s.cache.Set(sctx, slug, b); err != nil {
				s.logger.Warn("leaderboard cache write failed", "slug", slug, "error", err)
			}
		}
		return b, nil
	})
	if err != nil {
		return Board{}, err
	}
	return v.(Board), nil
}

// Invalidate drops the cached board so the next read recomputes it.
func (s *Service) Invalidate(ctx context.Context, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[slug]++
	if err := s.cache.Invalidate(ctx, slug); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", "slug", slug, "error", err)
	}
}

func (s *Service) compute(ctx context.Context, slug string) (Board, error) {
	game, err := s.store.GameBySlug(ctx, slug)
	if err != nil {
		return Board{}, err
	}
	snaps, err := Snapshots(ctx, s.store, game.ID)
	if err != nil {
		return Board{}, err
	}
	return Board{
		Game: GameSummary{
			ID:      game.ID,
			Name:    game.Name,
			Slug:    game.Slug,
			Status:  string(game.Status),
			LogoURL: game.LogoURL,
		},
		Leaderboard: Rank(snaps, game.RankingMode),
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// Snapshots loads the progress of every team in a game.
func Snapshots(ctx context.Context, store hunt.Store, gameID string) ([]Snapshot, error) {
	teams, err := store.ListTeams(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	nodes, err := store.ListNodes(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	scans, err := store.ListGameScans(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	hints, err := store.ListGameHintUsages(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("listing hint usages: %w", err)
	}

	titles := make(map[string]string, len(nodes))
	for _, n := range nodes {
		titles[n.ID] = n.Title
	}
	scansByTeam := make(map[string][]hunt.Scan)
	for _, sc := range scans {
		scansByTeam[sc.TeamID] = append(scansByTeam[sc.TeamID], sc)
	}
	hintsByTeam := make(map[string][]hunt.HintUsage)
	for _, h := range hints {
		hintsByTeam[h.TeamID] = append(hintsByTeam[h.TeamID], h)
	}

	snaps := make([]Snapshot, 0, len(teams))
	for _, t := range teams {
		own := scansByTeam[t.ID]
		snap := Snapshot{
			TeamID:      t.ID,
			TeamName:    t.Name,
			TeamLogoURL: t.LogoURL,
			NodesFound:  len(own),
			TotalPoints: hunt.TotalPoints(own, hintsByTeam[t.ID]),
			FinishedAt:  t.FinishedAt,
		}
		// Scans arrive ordered by time, then sequence.
		if len(own) > 0 {
			first, last := own[0].ScannedAt, own[len(own)-1].ScannedAt
			snap.FirstScanAt = &first
			snap.LastScanAt = &last
			snap.CurrentNode = titles[own[len(own)-1].NodeID]
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
