package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/playperu/qrhunt/internal/store"
)

// AdminStore holds organizer accounts and their sessions.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (store.Admin, string, error)
	CreateAdminSession(ctx context.Context, adminID string) (string, error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (store.Admin, error)
}

var errNoAdminSession = errors.New("no valid admin session")

const adminCookieName = "admin_session"

// adminFromRequest reads the admin_session cookie and looks up the admin session.
func adminFromRequest(r *http.Request, admins AdminStore) (store.Admin, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return store.Admin{}, errNoAdminSession
	}
	a, err := admins.AdminFromSession(r.Context(), cookie.Value)
	if err != nil {
		return store.Admin{}, errNoAdminSession
	}
	return a, nil
}
