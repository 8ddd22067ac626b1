package hunt

import (
	"context"
	"time"
)

// Store is the graph and progress storage the engine reads and writes
// through. Implementations must enforce uniqueness of (team, node) for
// scans and hint usages, and make ClaimWinner an atomic compare-and-set.
type Store interface {
	CreateGame(ctx context.Context, g Game) (Game, error)
	GameByID(ctx context.Context, id string) (Game, error)
	GameBySlug(ctx context.Context, slug string) (Game, error)
	ListGames(ctx context.Context) ([]Game, error)
	SetGameStatus(ctx context.Context, id string, status GameStatus, at time.Time) error
	// ResetGame moves the game to draft and wipes every scan, hint usage,
	// finish mark and the winner in a single transaction.
	ResetGame(ctx context.Context, id string) error
	// ClaimWinner sets the winner if none is set yet and reports whether
	// teamID holds the title afterwards.
	ClaimWinner(ctx context.Context, gameID, teamID string) (bool, error)

	CreateNode(ctx context.Context, n Node) (Node, error)
	NodeByID(ctx context.Context, id string) (Node, error)
	NodeByKey(ctx context.Context, gameID, key string) (Node, error)
	ListNodes(ctx context.Context, gameID string) ([]Node, error)
	NodeStats(ctx context.Context, gameID string) (NodeStats, error)

	CreateEdge(ctx context.Context, e Edge) (Edge, error)
	ListEdges(ctx context.Context, gameID string) ([]Edge, error)

	CreateTeam(ctx context.Context, t Team) (Team, error)
	TeamByID(ctx context.Context, id string) (Team, error)
	TeamByCode(ctx context.Context, gameID, code string) (Team, error)
	ListTeams(ctx context.Context, gameID string) ([]Team, error)
	// MarkTeamJoined records the first join and reports whether this call set it.
	MarkTeamJoined(ctx context.Context, teamID string, at time.Time) (bool, error)
	// MarkTeamFinished records the first finish and reports whether this call set it.
	MarkTeamFinished(ctx context.Context, teamID string, at time.Time) (bool, error)

	// InsertScan appends a scan and reports false when the pair already exists.
	InsertScan(ctx context.Context, s Scan) (Scan, bool, error)
	ListTeamScans(ctx context.Context, teamID string) ([]Scan, error)
	ListGameScans(ctx context.Context, gameID string) ([]Scan, error)
	// FirstEndScan returns the earliest scan of an end node in the game,
	// ordered by time and then insertion sequence.
	FirstEndScan(ctx context.Context, gameID string) (Scan, error)

	// InsertHintUsage records a hint charge and reports false when the
	// team already paid for the node; the stored row is returned either way.
	InsertHintUsage(ctx context.Context, h HintUsage) (HintUsage, bool, error)
	ListTeamHintUsages(ctx context.Context, teamID string) ([]HintUsage, error)
	ListGameHintUsages(ctx context.Context, gameID string) ([]HintUsage, error)
}
