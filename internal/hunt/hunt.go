// Package hunt defines the core domain types of a scavenger hunt and the
// storage interface the engine runs against. It has no external dependencies.
package hunt

import "time"

type GameStatus string

const (
	GameStatusDraft     GameStatus = "draft"
	GameStatusPending   GameStatus = "pending"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusDraft, GameStatusPending, GameStatusActive, GameStatusCompleted:
		return true
	}
	return false
}

// RankingMode selects the ordering policy of the leaderboard.
type RankingMode string

const (
	RankByPoints RankingMode = "points"
	RankByNodes  RankingMode = "nodes"
	RankByTime   RankingMode = "time"
)

func (m RankingMode) Valid() bool {
	switch m {
	case RankByPoints, RankByNodes, RankByTime:
		return true
	}
	return false
}

type Game struct {
	ID                     string
	Slug                   string
	Name                   string
	LogoURL                string
	Status                 GameStatus
	RankingMode            RankingMode
	BasePoints             int
	TimeBonusEnabled       bool
	TimeBonusMultiplier    float64
	TimeBonusWindowMinutes int
	RandomMode             bool
	WinnerTeamID           string
	StartedAt              *time.Time
	EndedAt                *time.Time
	CreatedAt              time.Time
}

// BonusApplies reports whether a scan at t lands inside the time bonus window.
func (g Game) BonusApplies(t time.Time) bool {
	if !g.TimeBonusEnabled || g.TimeBonusMultiplier <= 0 || g.StartedAt == nil {
		return false
	}
	window := time.Duration(g.TimeBonusWindowMinutes) * time.Minute
	return t.Sub(*g.StartedAt) < window
}

// Node is a clue in the hunt graph.
type Node struct {
	ID           string
	GameID       string
	Key          string
	Title        string
	Content      string
	IsStart      bool
	IsEnd        bool
	Activated    bool
	Points       int
	Hint         string
	PasswordHash string
	CreatedAt    time.Time
}

func (n Node) RequiresPassword() bool { return n.PasswordHash != "" }

type Edge struct {
	ID         string
	GameID     string
	FromNodeID string
	ToNodeID   string
}

type Team struct {
	ID          string
	GameID      string
	Code        string
	Name        string
	LogoURL     string
	StartNodeID string
	JoinedAt    *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
}

func (t Team) IsFinished() bool { return t.FinishedAt != nil }

// Scan records a team completing a node. At most one exists per (TeamID, NodeID).
type Scan struct {
	Seq           int64
	GameID        string
	TeamID        string
	NodeID        string
	PointsAwarded int
	ClientIP      string
	UserAgent     string
	ScannedAt     time.Time
}

type HintUsage struct {
	GameID         string
	TeamID         string
	NodeID         string
	PointsDeducted int
	UsedAt         time.Time
}

// NodeStats summarizes a game's graph for the activation gate.
type NodeStats struct {
	Total     int
	Start     int
	End       int
	Activated int
}

// TotalPoints is a team's effective score: points awarded by its scans
// minus points deducted for hints.
func TotalPoints(scans []Scan, hints []HintUsage) int {
	total := 0
	for _, s := range scans {
		total += s.PointsAwarded
	}
	for _, h := range hints {
		total -= h.PointsDeducted
	}
	return total
}
