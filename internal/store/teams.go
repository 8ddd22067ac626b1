package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

const teamColumns = `id, game_id, code, name, logo_url, start_node_id, joined_at, finished_at, created_at`

func scanTeam(row rowScanner) (hunt.Team, error) {
	var (
		t                hunt.Team
		startNode        sql.NullString
		joined, finished sql.NullString
		createdAt        string
	)
	err := row.Scan(&t.ID, &t.GameID, &t.Code, &t.Name, &t.LogoURL, &startNode, &joined, &finished, &createdAt)
	if err != nil {
		return t, err
	}
	t.StartNodeID = startNode.String
	t.JoinedAt = parseNullTime(joined)
	t.FinishedAt = parseNullTime(finished)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func (s *SQLiteStore) CreateTeam(ctx context.Context, t hunt.Team) (hunt.Team, error) {
	t.ID = NewID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, game_id, code, name, logo_url, start_node_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.GameID, t.Code, t.Name, t.LogoURL, nullString(t.StartNodeID), formatTime(t.CreatedAt))
	if err != nil {
		return hunt.Team{}, classify(err)
	}
	return t, nil
}

func (s *SQLiteStore) TeamByID(ctx context.Context, id string) (hunt.Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = ?`, id))
	if err != nil {
		return t, notFound(err, hunt.ErrTeamNotFound)
	}
	return t, nil
}

func (s *SQLiteStore) TeamByCode(ctx context.Context, gameID, code string) (hunt.Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE game_id = ? AND code = ?`, gameID, code))
	if err != nil {
		return t, notFound(err, hunt.ErrTeamNotFound)
	}
	return t, nil
}

func (s *SQLiteStore) ListTeams(ctx context.Context, gameID string) ([]hunt.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE game_id = ? ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	teams := []hunt.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *SQLiteStore) MarkTeamJoined(ctx context.Context, teamID string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE teams SET joined_at = ? WHERE id = ? AND joined_at IS NULL
	`, formatTime(at), teamID)
	if err != nil {
		return false, classify(err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

func (s *SQLiteStore) MarkTeamFinished(ctx context.Context, teamID string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE teams SET finished_at = ? WHERE id = ? AND finished_at IS NULL
	`, formatTime(at), teamID)
	if err != nil {
		return false, classify(err)
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}
