package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
)

type ScanRequest struct {
	TeamID    string
	NodeKey   string
	Password  string
	ClientIP  string
	UserAgent string
}

// NodeView is the team-facing projection of a node. It never carries the
// node key, which would let a team skip finding the code.
type NodeView struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Content          string `json:"content,omitempty"`
	Points           int    `json:"points"`
	IsStart          bool   `json:"isStart"`
	IsEnd            bool   `json:"isEnd"`
	HasHint          bool   `json:"hasHint"`
	RequiresPassword bool   `json:"requiresPassword"`
}

func viewOf(n hunt.Node, withContent bool) NodeView {
	v := NodeView{
		ID:               n.ID,
		Title:            n.Title,
		Points:           n.Points,
		IsStart:          n.IsStart,
		IsEnd:            n.IsEnd,
		HasHint:          n.Hint != "",
		RequiresPassword: n.RequiresPassword(),
	}
	if withContent {
		v.Content = n.Content
	}
	return v
}

type ScanResult struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	Node             *NodeView `json:"node,omitempty"`
	PasswordRequired bool      `json:"passwordRequired,omitempty"`
	IsGameComplete   bool      `json:"isGameComplete,omitempty"`
	IsWinner         bool      `json:"isWinner,omitempty"`
	PointsAwarded    int       `json:"pointsAwarded,omitempty"`
}

// RecordScan validates a scan and records it. Checks run in a fixed order
// and the first failure is returned with no side effects. A node that
// needs a password yields hunt.ErrPasswordRequired together with a result
// whose PasswordRequired flag is set, so the client can resubmit. An error
// settling an end-node finish is returned after the scan is recorded.
func (e *Engine) RecordScan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	unlock := e.teams.Lock(req.TeamID)
	defer unlock()

	team, err := e.store.TeamByID(ctx, req.TeamID)
	if err != nil {
		return ScanResult{}, err
	}

	unlockGame := e.games.RLock(team.GameID)
	defer unlockGame()

	game, err := e.store.GameByID(ctx, team.GameID)
	if err != nil {
		return ScanResult{}, err
	}
	if game.Status != hunt.GameStatusActive {
		return ScanResult{}, hunt.ErrGameNotActive
	}

	node, err := e.store.NodeByKey(ctx, game.ID, req.NodeKey)
	if errors.Is(err, hunt.ErrNotFound) || (err == nil && !node.Activated) {
		return ScanResult{}, hunt.ErrInvalidCode
	}
	if err != nil {
		return ScanResult{}, err
	}

	scans, err := e.store.ListTeamScans(ctx, team.ID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("loading team scans: %w", err)
	}
	if len(scans) == 0 && !isStartFor(team, node) {
		return ScanResult{}, hunt.ErrMustStartAtStart
	}
	for _, sc := range scans {
		if sc.NodeID == node.ID {
			return ScanResult{}, hunt.ErrAlreadyScanned
		}
	}

	if node.RequiresPassword() {
		if req.Password == "" {
			return ScanResult{
				Message:          "This clue is locked. Enter the password to unlock it.",
				PasswordRequired: true,
			}, hunt.ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(node.PasswordHash), []byte(req.Password)) != nil {
			return ScanResult{}, hunt.ErrIncorrectPassword
		}
	}

	// End-node scans of one game are recorded one at a time so that the
	// earliest timestamp is also the first row written.
	if node.IsEnd {
		unlockFinish := e.finish.Lock(game.ID)
		defer unlockFinish()
	}

	now := e.now()
	points := node.Points
	if game.BonusApplies(now) {
		points = int(math.Floor(float64(points) * game.TimeBonusMultiplier))
	}

	var (
		recorded hunt.Scan
		inserted bool
	)
	err = retry(ctx, func() error {
		var err error
		recorded, inserted, err = e.store.InsertScan(ctx, hunt.Scan{
			GameID:        game.ID,
			TeamID:        team.ID,
			NodeID:        node.ID,
			PointsAwarded: points,
			ClientIP:      req.ClientIP,
			UserAgent:     req.UserAgent,
			ScannedAt:     now,
		})
		return err
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("recording scan: %w", err)
	}
	if !inserted {
		return ScanResult{}, hunt.ErrAlreadyScanned
	}

	e.logger.Info("scan recorded",
		"game_id", game.ID,
		"team_id", team.ID,
		"node_id", node.ID,
		"points", points,
		"seq", recorded.Seq,
	)

	view := viewOf(node, true)
	result := ScanResult{
		Success:        true,
		Message:        fmt.Sprintf("You found %s!", node.Title),
		Node:           &view,
		IsGameComplete: node.IsEnd,
		PointsAwarded:  points,
	}

	var finishErr error
	if node.IsEnd {
		result.IsWinner, finishErr = e.finishTeam(ctx, game.ID, team.ID, now)
	}

	e.events.Publish(game.ID, eventbus.ChannelScan, eventbus.ScanEvent{
		TeamName:  team.Name,
		NodeName:  node.Title,
		Points:    points,
		Timestamp: now,
	})
	e.publishBoard(ctx, game)
	return result, finishErr
}

// finishTeam stamps the team's finish time and settles the winner. A team
// that had already finished is never reported as the winner again.
func (e *Engine) finishTeam(ctx context.Context, gameID, teamID string, at time.Time) (bool, error) {
	var first bool
	err := retry(ctx, func() error {
		var err error
		first, err = e.store.MarkTeamFinished(ctx, teamID, at)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("marking team finished: %w", err)
	}
	if !first {
		return false, nil
	}
	return e.CheckIfWinner(ctx, gameID, teamID)
}

// isStartFor reports whether node may be a team's first scan. A team with
// an assigned start node must begin there.
func isStartFor(t hunt.Team, n hunt.Node) bool {
	if t.StartNodeID != "" {
		return n.ID == t.StartNodeID
	}
	return n.IsStart
}

// CheckIfWinner reports whether teamID won the game. The winner slot is
// always claimed for the earliest finisher, whoever asks, so a claim that
// failed on the winning scan is completed by the next end-node scan.
func (e *Engine) CheckIfWinner(ctx context.Context, gameID, teamID string) (bool, error) {
	var first hunt.Scan
	err := retry(ctx, func() error {
		var err error
		first, err = e.store.FirstEndScan(ctx, gameID)
		return err
	})
	if errors.Is(err, hunt.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding first finisher: %w", err)
	}

	var claimed bool
	err = retry(ctx, func() error {
		var err error
		claimed, err = e.store.ClaimWinner(ctx, gameID, first.TeamID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("claiming winner: %w", err)
	}
	if !claimed {
		return false, nil
	}
	if first.TeamID != teamID {
		e.logger.Debug("winner confirmed", "game_id", gameID, "team_id", first.TeamID, "checked_by", teamID)
		return false, nil
	}
	e.logger.Info("winner decided", "game_id", gameID, "team_id", teamID)
	return true, nil
}
