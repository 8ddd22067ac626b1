package engine

import (
	"context"
	"fmt"

	"github.com/playperu/qrhunt/internal/hunt"
)

type HintResult struct {
	Hint           string `json:"hint"`
	PointsDeducted int    `json:"pointsDeducted"`
	AlreadyUsed    bool   `json:"alreadyUsed"`
}

// HintCost is the penalty charged for a node's hint.
func HintCost(n hunt.Node) int { return n.Points / 2 }

// RequestHint reveals a node's hint. The team is charged on the first
// request only; repeats return the original charge with AlreadyUsed set.
func (e *Engine) RequestHint(ctx context.Context, teamID, nodeID string) (HintResult, error) {
	unlock := e.teams.Lock(teamID)
	defer unlock()

	team, err := e.store.TeamByID(ctx, teamID)
	if err != nil {
		return HintResult{}, err
	}
	node, err := e.store.NodeByID(ctx, nodeID)
	if err != nil {
		return HintResult{}, err
	}
	if node.GameID != team.GameID {
		return HintResult{}, hunt.ErrNodeNotInTeamGame
	}

	unlockGame := e.games.RLock(team.GameID)
	defer unlockGame()

	game, err := e.store.GameByID(ctx, team.GameID)
	if err != nil {
		return HintResult{}, err
	}
	if game.Status != hunt.GameStatusActive {
		return HintResult{}, hunt.ErrGameNotActive
	}
	if node.Hint == "" {
		return HintResult{}, hunt.ErrNoHintAvailable
	}

	var (
		usage   hunt.HintUsage
		created bool
	)
	err = retry(ctx, func() error {
		var err error
		usage, created, err = e.store.InsertHintUsage(ctx, hunt.HintUsage{
			GameID:         game.ID,
			TeamID:         team.ID,
			NodeID:         node.ID,
			PointsDeducted: HintCost(node),
			UsedAt:         e.now(),
		})
		return err
	})
	if err != nil {
		return HintResult{}, fmt.Errorf("recording hint usage: %w", err)
	}

	if created {
		e.logger.Info("hint used", "game_id", game.ID, "team_id", team.ID, "node_id", node.ID,
			"points_deducted", usage.PointsDeducted)
		e.publishBoard(ctx, game)
	}
	return HintResult{
		Hint:           node.Hint,
		PointsDeducted: usage.PointsDeducted,
		AlreadyUsed:    !created,
	}, nil
}
