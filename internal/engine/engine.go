// Package engine runs game progression: lifecycle transitions, scans,
// hints, team progress and winner detection.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
	"github.com/playperu/qrhunt/internal/leaderboard"
)

// Publisher delivers events to a game's viewers.
type Publisher interface {
	Publish(gameID string, channel eventbus.Channel, payload any)
}

// Boards serves and invalidates cached leaderboards.
type Boards interface {
	Board(ctx context.Context, slug string) (leaderboard.Board, error)
	Invalidate(ctx context.Context, slug string)
}

const transientRetryDelay = 50 * time.Millisecond

type Engine struct {
	store  hunt.Store
	boards Boards
	events Publisher
	logger *slog.Logger
	now    func() time.Time

	// teams serializes scans and hints per team. finish serializes
	// end-node scans per game so recorded order matches timestamp order.
	// games is held exclusively by lifecycle transitions and shared by
	// scans and hints, so no write lands across a status change.
	// Lock order: teams, games, finish.
	teams  *keyedMutex
	finish *keyedMutex
	games  *keyedMutex
}

func New(store hunt.Store, boards Boards, events Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		boards: boards,
		events: events,
		logger: logger,
		now:    time.Now,
		teams:  newKeyedMutex(),
		finish: newKeyedMutex(),
		games:  newKeyedMutex(),
	}
}

// publishBoard drops the cached board and pushes a fresh one to viewers.
func (e *Engine) publishBoard(ctx context.Context, g hunt.Game) {
	e.boards.Invalidate(ctx, g.Slug)
	b, err := e.boards.Board(ctx, g.Slug)
	if err != nil {
		e.logger.Error("computing leaderboard", "game_id", g.ID, "error", err)
		return
	}
	e.events.Publish(g.ID, eventbus.ChannelLeaderboard, b)
}

// retry runs op and repeats it once after a short pause if the store
// reported a transient failure.
func retry(ctx context.Context, op func() error) error {
	err := op()
	if !errors.Is(err, hunt.ErrTransient) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(transientRetryDelay):
	}
	return op()
}
