package engine

import (
	"context"
	"fmt"

	"github.com/playperu/qrhunt/internal/hunt"
)

type Progress struct {
	TeamID      string     `json:"teamId"`
	TeamName    string     `json:"teamName"`
	GameStatus  string     `json:"gameStatus"`
	NodesFound  int        `json:"nodesFound"`
	TotalPoints int        `json:"totalPoints"`
	IsFinished  bool       `json:"isFinished"`
	CurrentNode *NodeView  `json:"currentNode"`
	NextNodes   []NodeView `json:"nextNodes"`
	// SuggestedNodes are unscanned edge targets of the current node.
	// They are advisory; any next node may be scanned.
	SuggestedNodes []NodeView `json:"suggestedNodes"`
}

// TeamProgress summarizes where a team stands in its game.
func (e *Engine) TeamProgress(ctx context.Context, teamID string) (Progress, error) {
	team, err := e.store.TeamByID(ctx, teamID)
	if err != nil {
		return Progress{}, err
	}
	game, err := e.store.GameByID(ctx, team.GameID)
	if err != nil {
		return Progress{}, err
	}
	nodes, err := e.store.ListNodes(ctx, game.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("listing nodes: %w", err)
	}
	scans, err := e.store.ListTeamScans(ctx, team.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("listing scans: %w", err)
	}
	hints, err := e.store.ListTeamHintUsages(ctx, team.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("listing hint usages: %w", err)
	}

	p := Progress{
		TeamID:         team.ID,
		TeamName:       team.Name,
		GameStatus:     string(game.Status),
		NodesFound:     len(scans),
		TotalPoints:    hunt.TotalPoints(scans, hints),
		IsFinished:     team.IsFinished(),
		NextNodes:      []NodeView{},
		SuggestedNodes: []NodeView{},
	}

	byID := make(map[string]hunt.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	scanned := make(map[string]bool, len(scans))
	for _, sc := range scans {
		scanned[sc.NodeID] = true
	}

	if len(scans) > 0 && !p.IsFinished {
		if n, ok := byID[scans[len(scans)-1].NodeID]; ok {
			v := viewOf(n, true)
			p.CurrentNode = &v
		}
	}
	if p.IsFinished {
		return p, nil
	}

	for _, n := range nodes {
		if n.Activated && !scanned[n.ID] {
			p.NextNodes = append(p.NextNodes, viewOf(n, false))
		}
	}

	if p.CurrentNode == nil || game.RandomMode {
		return p, nil
	}
	edges, err := e.store.ListEdges(ctx, game.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("listing edges: %w", err)
	}
	for _, edge := range edges {
		if edge.FromNodeID != p.CurrentNode.ID {
			continue
		}
		if n, ok := byID[edge.ToNodeID]; ok && n.Activated && !scanned[n.ID] {
			p.SuggestedNodes = append(p.SuggestedNodes, viewOf(n, false))
		}
	}
	return p, nil
}
