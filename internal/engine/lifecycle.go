package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
)

// Action is a lifecycle command issued by an organizer.
type Action string

const (
	ActionOpen     Action = "open"
	ActionActivate Action = "activate"
	ActionComplete Action = "complete"
	ActionReset    Action = "reset"
)

type transition struct {
	from []hunt.GameStatus // empty means any state
	to   hunt.GameStatus

	checkGraph bool
	// requireActivated adds the activated-node check to the graph check.
	requireActivated bool
}

var transitions = map[Action]transition{
	ActionOpen: {
		from:       []hunt.GameStatus{hunt.GameStatusDraft},
		to:         hunt.GameStatusPending,
		checkGraph: true,
	},
	ActionActivate: {
		from:             []hunt.GameStatus{hunt.GameStatusDraft, hunt.GameStatusPending},
		to:               hunt.GameStatusActive,
		checkGraph:       true,
		requireActivated: true,
	},
	ActionComplete: {
		from: []hunt.GameStatus{hunt.GameStatusActive},
		to:   hunt.GameStatusCompleted,
	},
	ActionReset: {
		to: hunt.GameStatusDraft,
	},
}

func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := transitions[a]
	return a, ok
}

func (e *Engine) Open(ctx context.Context, gameID string) (hunt.Game, error) {
	return e.Transition(ctx, gameID, ActionOpen)
}

func (e *Engine) Activate(ctx context.Context, gameID string) (hunt.Game, error) {
	return e.Transition(ctx, gameID, ActionActivate)
}

func (e *Engine) Complete(ctx context.Context, gameID string) (hunt.Game, error) {
	return e.Transition(ctx, gameID, ActionComplete)
}

// Reset returns the game to draft and wipes all team progress.
func (e *Engine) Reset(ctx context.Context, gameID string) (hunt.Game, error) {
	return e.Transition(ctx, gameID, ActionReset)
}

// Transition applies a lifecycle action to a game.
func (e *Engine) Transition(ctx context.Context, gameID string, action Action) (hunt.Game, error) {
	tr, ok := transitions[action]
	if !ok {
		return hunt.Game{}, fmt.Errorf("%w: unknown action %q", hunt.ErrInvalidTransition, action)
	}

	unlock := e.games.Lock(gameID)
	defer unlock()

	g, err := e.store.GameByID(ctx, gameID)
	if err != nil {
		return hunt.Game{}, err
	}
	if len(tr.from) > 0 && !slices.Contains(tr.from, g.Status) {
		return hunt.Game{}, fmt.Errorf("%w: cannot %s a %s game", hunt.ErrInvalidTransition, action, g.Status)
	}
	if tr.checkGraph {
		if err := e.validateGraph(ctx, gameID, tr.requireActivated); err != nil {
			return hunt.Game{}, err
		}
	}

	now := e.now()
	if action == ActionReset {
		err = retry(ctx, func() error { return e.store.ResetGame(ctx, gameID) })
	} else {
		err = retry(ctx, func() error { return e.store.SetGameStatus(ctx, gameID, tr.to, now) })
	}
	if err != nil {
		return hunt.Game{}, fmt.Errorf("applying %s: %w", action, err)
	}

	g, err = e.store.GameByID(ctx, gameID)
	if err != nil {
		return hunt.Game{}, err
	}
	e.logger.Info("game transition", "game_id", gameID, "action", action, "status", g.Status)

	e.events.Publish(g.ID, eventbus.ChannelGameStatus, eventbus.GameStatusEvent{
		Status:    string(g.Status),
		Timestamp: now,
	})
	e.publishBoard(ctx, g)
	return g, nil
}

// validateGraph returns a ValidationError naming every missing precondition.
func (e *Engine) validateGraph(ctx context.Context, gameID string, requireActivated bool) error {
	stats, err := e.store.NodeStats(ctx, gameID)
	if err != nil {
		return fmt.Errorf("loading node stats: %w", err)
	}

	var missing []string
	if stats.Total == 0 {
		missing = append(missing, hunt.MissingNodes)
	}
	if stats.Start == 0 {
		missing = append(missing, hunt.MissingStartNode)
	}
	if stats.End == 0 {
		missing = append(missing, hunt.MissingEndNode)
	}
	if requireActivated && stats.Activated == 0 {
		missing = append(missing, hunt.MissingActivatedNode)
	}
	if len(missing) > 0 {
		return &hunt.ValidationError{Missing: missing}
	}
	return nil
}
