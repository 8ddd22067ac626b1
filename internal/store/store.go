// Package store implements hunt.Store on SQLite via libSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

// Fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteStore struct {
	db *sql.DB
}

var _ hunt.Store = (*SQLiteStore)(nil)

func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// classify maps driver errors onto the hunt taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", hunt.ErrDuplicate, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return fmt.Errorf("%w: %v", hunt.ErrTransient, err)
	}
	return err
}

func notFound(err error, nf error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nf
	}
	return classify(err)
}

const gameColumns = `id, slug, name, logo_url, status, ranking_mode, base_points,
	time_bonus_enabled, time_bonus_multiplier, time_bonus_window_minutes, random_mode,
	winner_team_id, started_at, ended_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (hunt.Game, error) {
	var (
		g              hunt.Game
		status, mode   string
		bonus, random  int
		winner         sql.NullString
		started, ended sql.NullString
		createdAt      string
	)
	err := row.Scan(&g.ID, &g.Slug, &g.Name, &g.LogoURL, &status, &mode, &g.BasePoints,
		&bonus, &g.TimeBonusMultiplier, &g.TimeBonusWindowMinutes, &random,
		&winner, &started, &ended, &createdAt)
	if err != nil {
		return g, err
	}
	g.Status = hunt.GameStatus(status)
	g.RankingMode = hunt.RankingMode(mode)
	g.TimeBonusEnabled = bonus == 1
	g.RandomMode = random == 1
	g.WinnerTeamID = winner.String
	g.StartedAt = parseNullTime(started)
	g.EndedAt = parseNullTime(ended)
	g.CreatedAt = parseTime(createdAt)
	return g, nil
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g hunt.Game) (hunt.Game, error) {
	g.ID = NewID()
	if g.Status == "" {
		g.Status = hunt.GameStatusDraft
	}
	if g.RankingMode == "" {
		g.RankingMode = hunt.RankByPoints
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, slug, name, logo_url, status, ranking_mode, base_points,
			time_bonus_enabled, time_bonus_multiplier, time_bonus_window_minutes, random_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.Slug, g.Name, g.LogoURL, string(g.Status), string(g.RankingMode), g.BasePoints,
		boolInt(g.TimeBonusEnabled), g.TimeBonusMultiplier, g.TimeBonusWindowMinutes, boolInt(g.RandomMode),
		formatTime(g.CreatedAt))
	if err != nil {
		return hunt.Game{}, classify(err)
	}
	return g, nil
}

func (s *SQLiteStore) GameByID(ctx context.Context, id string) (hunt.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if err != nil {
		return g, notFound(err, hunt.ErrGameNotFound)
	}
	return g, nil
}

func (s *SQLiteStore) GameBySlug(ctx context.Context, slug string) (hunt.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE slug = ?`, slug))
	if err != nil {
		return g, notFound(err, hunt.ErrGameNotFound)
	}
	return g, nil
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]hunt.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	games := []hunt.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) SetGameStatus(ctx context.Context, id string, status hunt.GameStatus, at time.Time) error {
	st, ts := string(status), formatTime(at)
	result, err := s.db.ExecContext(ctx, `
		UPDATE games SET
			status = ?,
			started_at = CASE WHEN ? = 'active' THEN COALESCE(started_at, ?) ELSE started_at END,
			ended_at = CASE WHEN ? = 'completed' THEN ? ELSE ended_at END
		WHERE id = ?
	`, st, st, ts, st, ts, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return hunt.ErrGameNotFound
	}
	return nil
}

func (s *SQLiteStore) ResetGame(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE games SET status = 'draft', winner_team_id = NULL, started_at = NULL, ended_at = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return hunt.ErrGameNotFound
	}

	for _, stmt := range []string{
		`DELETE FROM scans WHERE game_id = ?`,
		`DELETE FROM hint_usages WHERE game_id = ?`,
		`UPDATE teams SET finished_at = NULL WHERE game_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return classify(err)
		}
	}
	return classify(tx.Commit())
}

func (s *SQLiteStore) ClaimWinner(ctx context.Context, gameID, teamID string) (bool, error) {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE games SET winner_team_id = ? WHERE id = ? AND winner_team_id IS NULL
	`, teamID, gameID); err != nil {
		return false, classify(err)
	}

	var winner sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT winner_team_id FROM games WHERE id = ?`, gameID).Scan(&winner)
	if err != nil {
		return false, notFound(err, hunt.ErrGameNotFound)
	}
	return winner.String == teamID, nil
}
