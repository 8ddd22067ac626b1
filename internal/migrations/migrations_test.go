package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/qrhunt/internal/database"
	"github.com/playperu/qrhunt/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	want := []string{"games", "nodes", "edges", "teams", "scans", "hint_usages", "admins", "admin_sessions"}
	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}

func TestScanPairIsUnique(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, stmt := range []string{
		`INSERT INTO games (id, slug, name, created_at) VALUES ('g1', 'g1', 'G', '2025-01-01T00:00:00Z')`,
		`INSERT INTO nodes (id, game_id, node_key, title, points, created_at) VALUES ('n1', 'g1', 'k1', 'N', 100, '2025-01-01T00:00:00Z')`,
		`INSERT INTO teams (id, game_id, code, name, created_at) VALUES ('t1', 'g1', 'c1', 'T', '2025-01-01T00:00:00Z')`,
		`INSERT INTO scans (game_id, team_id, node_id, points_awarded, scanned_at) VALUES ('g1', 't1', 'n1', 100, '2025-01-01T00:00:00Z')`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO scans (game_id, team_id, node_id, points_awarded, scanned_at) VALUES ('g1', 't1', 'n1', 100, '2025-01-01T00:00:01Z')`)
	if err == nil {
		t.Fatal("expected unique violation on duplicate (team, node) scan")
	}
}
