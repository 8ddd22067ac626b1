package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playperu/qrhunt/internal/hunt"
)

const scanColumns = `seq, game_id, team_id, node_id, points_awarded, client_ip, user_agent, scanned_at`

func scanScan(row rowScanner) (hunt.Scan, error) {
	var (
		sc        hunt.Scan
		scannedAt string
	)
	err := row.Scan(&sc.Seq, &sc.GameID, &sc.TeamID, &sc.NodeID, &sc.PointsAwarded,
		&sc.ClientIP, &sc.UserAgent, &scannedAt)
	if err != nil {
		return sc, err
	}
	sc.ScannedAt = parseTime(scannedAt)
	return sc, nil
}

func (s *SQLiteStore) InsertScan(ctx context.Context, sc hunt.Scan) (hunt.Scan, bool, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scans (game_id, team_id, node_id, points_awarded, client_ip, user_agent, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (team_id, node_id) DO NOTHING
		RETURNING seq
	`, sc.GameID, sc.TeamID, sc.NodeID, sc.PointsAwarded, sc.ClientIP, sc.UserAgent,
		formatTime(sc.ScannedAt)).Scan(&sc.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Scan{}, false, nil
	}
	if err != nil {
		return hunt.Scan{}, false, classify(err)
	}
	return sc, true, nil
}

func (s *SQLiteStore) listScans(ctx context.Context, query string, args ...any) ([]hunt.Scan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	scans := []hunt.Scan{}
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

func (s *SQLiteStore) ListTeamScans(ctx context.Context, teamID string) ([]hunt.Scan, error) {
	return s.listScans(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE team_id = ? ORDER BY scanned_at, seq`, teamID)
}

func (s *SQLiteStore) ListGameScans(ctx context.Context, gameID string) ([]hunt.Scan, error) {
	return s.listScans(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE game_id = ? ORDER BY scanned_at, seq`, gameID)
}

func (s *SQLiteStore) FirstEndScan(ctx context.Context, gameID string) (hunt.Scan, error) {
	sc, err := scanScan(s.db.QueryRowContext(ctx, `
		SELECT s.seq, s.game_id, s.team_id, s.node_id, s.points_awarded, s.client_ip, s.user_agent, s.scanned_at
		FROM scans s
		JOIN nodes n ON n.id = s.node_id
		WHERE s.game_id = ? AND n.is_end = 1
		ORDER BY s.scanned_at, s.seq
		LIMIT 1
	`, gameID))
	if err != nil {
		return sc, notFound(err, hunt.ErrNotFound)
	}
	return sc, nil
}

func (s *SQLiteStore) InsertHintUsage(ctx context.Context, h hunt.HintUsage) (hunt.HintUsage, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO hint_usages (game_id, team_id, node_id, points_deducted, used_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (team_id, node_id) DO NOTHING
	`, h.GameID, h.TeamID, h.NodeID, h.PointsDeducted, formatTime(h.UsedAt))
	if err != nil {
		return hunt.HintUsage{}, false, classify(err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return h, true, nil
	}

	var (
		existing hunt.HintUsage
		usedAt   string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT game_id, team_id, node_id, points_deducted, used_at
		FROM hint_usages WHERE team_id = ? AND node_id = ?
	`, h.TeamID, h.NodeID).Scan(&existing.GameID, &existing.TeamID, &existing.NodeID, &existing.PointsDeducted, &usedAt)
	if err != nil {
		return hunt.HintUsage{}, false, classify(err)
	}
	existing.UsedAt = parseTime(usedAt)
	return existing, false, nil
}

func (s *SQLiteStore) listHintUsages(ctx context.Context, query string, args ...any) ([]hunt.HintUsage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	usages := []hunt.HintUsage{}
	for rows.Next() {
		var (
			h      hunt.HintUsage
			usedAt string
		)
		if err := rows.Scan(&h.GameID, &h.TeamID, &h.NodeID, &h.PointsDeducted, &usedAt); err != nil {
			return nil, err
		}
		h.UsedAt = parseTime(usedAt)
		usages = append(usages, h)
	}
	return usages, rows.Err()
}

func (s *SQLiteStore) ListTeamHintUsages(ctx context.Context, teamID string) ([]hunt.HintUsage, error) {
	return s.listHintUsages(ctx, `
		SELECT game_id, team_id, node_id, points_deducted, used_at
		FROM hint_usages WHERE team_id = ? ORDER BY used_at
	`, teamID)
}

func (s *SQLiteStore) ListGameHintUsages(ctx context.Context, gameID string) ([]hunt.HintUsage, error) {
	return s.listHintUsages(ctx, `
		SELECT game_id, team_id, node_id, points_deducted, used_at
		FROM hint_usages WHERE game_id = ? ORDER BY used_at
	`, gameID)
}
