package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/qrhunt/internal/hunt"
	"github.com/playperu/qrhunt/internal/store"
)

type ctxKey int

const (
	ctxKeyTeam ctxKey = iota
	ctxKeyAdmin
	ctxKeyGame
)

func teamAuthMiddleware(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := teamFromRequest(r, tokens)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTeam, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminAuthMiddleware(admins AdminStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, err := adminFromRequest(r, admins)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAdmin, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// gameMiddleware resolves the {slug} URL parameter to a game.
func gameMiddleware(games hunt.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g, err := games.GameBySlug(r.Context(), chi.URLParam(r, "slug"))
			if errors.Is(err, hunt.ErrNotFound) {
				writeError(w, http.StatusNotFound, hunt.ErrGameNotFound.Error())
				return
			}
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyGame, g)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func teamFrom(r *http.Request) teamSession {
	return r.Context().Value(ctxKeyTeam).(teamSession)
}

func adminFrom(r *http.Request) store.Admin {
	return r.Context().Value(ctxKeyAdmin).(store.Admin)
}

func gameFrom(r *http.Request) hunt.Game {
	return r.Context().Value(ctxKeyGame).(hunt.Game)
}
