package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/qrhunt/internal/database"
	"github.com/playperu/qrhunt/internal/hunt"
	"github.com/playperu/qrhunt/internal/migrations"
	"github.com/playperu/qrhunt/internal/store"
)

// OpenStore returns a migrated store backed by a fresh database file that
// is removed when the test ends.
func OpenStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "hunt.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store.New(db)
}

// NodePassword is the password of Hunt.Locked.
const NodePassword = "open-sesame"

// Hunt is a small seeded game: start(100) -> locked(200, password) ->
// riddle(120, hint) -> finish(100, end), plus an inactive node.
type Hunt struct {
	Game     hunt.Game
	Start    hunt.Node
	Locked   hunt.Node
	Riddle   hunt.Node
	Finish   hunt.Node
	Inactive hunt.Node
	Teams    []hunt.Team
}

// SeedHunt creates the Hunt fixture in draft status with the given number of teams.
func SeedHunt(t *testing.T, st hunt.Store, slug string, teams int) Hunt {
	t.Helper()
	ctx := context.Background()

	g, err := st.CreateGame(ctx, hunt.Game{
		Slug:        slug,
		Name:        "Hunt " + slug,
		RankingMode: hunt.RankByPoints,
		BasePoints:  100,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(NodePassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	mk := func(n hunt.Node) hunt.Node {
		t.Helper()
		n.GameID = g.ID
		created, err := st.CreateNode(ctx, n)
		if err != nil {
			t.Fatalf("create node %s: %v", n.Key, err)
		}
		return created
	}

	h := Hunt{Game: g}
	h.Start = mk(hunt.Node{Key: "start", Title: "Town Hall", IsStart: true, Activated: true, Points: 100})
	h.Locked = mk(hunt.Node{Key: "locked", Title: "Old Library", Activated: true, Points: 200, PasswordHash: string(hash)})
	h.Riddle = mk(hunt.Node{Key: "riddle", Title: "Clock Tower", Activated: true, Points: 120, Hint: "Look up at noon."})
	h.Finish = mk(hunt.Node{Key: "finish", Title: "Harbour", IsEnd: true, Activated: true, Points: 100})
	h.Inactive = mk(hunt.Node{Key: "hidden", Title: "Cellar", Activated: false, Points: 50})

	for _, e := range [][2]hunt.Node{{h.Start, h.Locked}, {h.Locked, h.Riddle}, {h.Riddle, h.Finish}} {
		if _, err := st.CreateEdge(ctx, hunt.Edge{GameID: g.ID, FromNodeID: e[0].ID, ToNodeID: e[1].ID}); err != nil {
			t.Fatalf("create edge: %v", err)
		}
	}

	for i := range teams {
		team, err := st.CreateTeam(ctx, hunt.Team{
			GameID: g.ID,
			Code:   slug + "-team-" + string(rune('a'+i)),
			Name:   "Team " + string(rune('A'+i)),
		})
		if err != nil {
			t.Fatalf("create team: %v", err)
		}
		h.Teams = append(h.Teams, team)
	}
	return h
}
