package store

import (
	"context"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

type Admin struct {
	ID    string
	Email string
}

// SeedAdmin inserts the initial admin when the table is empty.
// Reports whether a row was written.
func (s *SQLiteStore) SeedAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return false, classify(err)
	}
	if count > 0 {
		return false, nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, password_hash) VALUES (?, ?, ?)`,
		NewID(), email, passwordHash,
	)
	return err == nil, classify(err)
}

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (Admin, string, error) {
	var (
		a            Admin
		passwordHash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM admins WHERE email = ?
	`, email).Scan(&a.ID, &a.Email, &passwordHash)
	if err != nil {
		return a, "", notFound(err, hunt.ErrNotFound)
	}
	return a, passwordHash, nil
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	id := NewID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (id, admin_id, created_at) VALUES (?, ?, ?)
	`, id, adminID, formatTime(time.Now()))
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return classify(err)
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (Admin, error) {
	var a Admin
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&a.ID, &a.Email)
	if err != nil {
		return a, notFound(err, hunt.ErrNotFound)
	}
	return a, nil
}
