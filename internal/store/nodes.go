package store

import (
	"context"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

const nodeColumns = `id, game_id, node_key, title, content, is_start, is_end, activated,
	points, hint, password_hash, created_at`

func scanNode(row rowScanner) (hunt.Node, error) {
	var (
		n                         hunt.Node
		isStart, isEnd, activated int
		createdAt                 string
	)
	err := row.Scan(&n.ID, &n.GameID, &n.Key, &n.Title, &n.Content, &isStart, &isEnd, &activated,
		&n.Points, &n.Hint, &n.PasswordHash, &createdAt)
	if err != nil {
		return n, err
	}
	n.IsStart = isStart == 1
	n.IsEnd = isEnd == 1
	n.Activated = activated == 1
	n.CreatedAt = parseTime(createdAt)
	return n, nil
}

func (s *SQLiteStore) CreateNode(ctx context.Context, n hunt.Node) (hunt.Node, error) {
	n.ID = NewID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, game_id, node_key, title, content, is_start, is_end, activated,
			points, hint, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.GameID, n.Key, n.Title, n.Content, boolInt(n.IsStart), boolInt(n.IsEnd), boolInt(n.Activated),
		n.Points, n.Hint, n.PasswordHash, formatTime(n.CreatedAt))
	if err != nil {
		return hunt.Node{}, classify(err)
	}
	return n, nil
}

func (s *SQLiteStore) NodeByID(ctx context.Context, id string) (hunt.Node, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if err != nil {
		return n, notFound(err, hunt.ErrNodeNotFound)
	}
	return n, nil
}

func (s *SQLiteStore) NodeByKey(ctx context.Context, gameID, key string) (hunt.Node, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE game_id = ? AND node_key = ?`, gameID, key))
	if err != nil {
		return n, notFound(err, hunt.ErrNodeNotFound)
	}
	return n, nil
}

func (s *SQLiteStore) ListNodes(ctx context.Context, gameID string) ([]hunt.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE game_id = ? ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	nodes := []hunt.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *SQLiteStore) NodeStats(ctx context.Context, gameID string) (hunt.NodeStats, error) {
	var st hunt.NodeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(is_start), 0),
			COALESCE(SUM(is_end), 0),
			COALESCE(SUM(activated), 0)
		FROM nodes WHERE game_id = ?
	`, gameID).Scan(&st.Total, &st.Start, &st.End, &st.Activated)
	return st, classify(err)
}

func (s *SQLiteStore) CreateEdge(ctx context.Context, e hunt.Edge) (hunt.Edge, error) {
	e.ID = NewID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (id, game_id, from_node_id, to_node_id)
		SELECT ?, ?, f.id, t.id
		FROM nodes f, nodes t
		WHERE f.id = ? AND t.id = ? AND f.game_id = ? AND t.game_id = ?
	`, e.ID, e.GameID, e.FromNodeID, e.ToNodeID, e.GameID, e.GameID)
	if err != nil {
		return hunt.Edge{}, classify(err)
	}

	// The INSERT ... SELECT writes nothing when either endpoint is outside the game.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM edges WHERE id = ?`, e.ID).Scan(&exists)
	if err != nil {
		return hunt.Edge{}, notFound(err, hunt.ErrNodeNotFound)
	}
	return e, nil
}

func (s *SQLiteStore) ListEdges(ctx context.Context, gameID string) ([]hunt.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, from_node_id, to_node_id FROM edges WHERE game_id = ? ORDER BY id
	`, gameID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	edges := []hunt.Edge{}
	for rows.Next() {
		var e hunt.Edge
		if err := rows.Scan(&e.ID, &e.GameID, &e.FromNodeID, &e.ToNodeID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
