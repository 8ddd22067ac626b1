package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/qrhunt/internal/engine"
)

type JoinRequest struct {
	Code string `json:"code"`
}

type JoinResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	TeamID     string    `json:"teamId"`
	TeamName   string    `json:"teamName"`
	GameID     string    `json:"gameId"`
	GameName   string    `json:"gameName"`
	GameStatus string    `json:"gameStatus"`
}

func handleJoin(logger *slog.Logger, eng *engine.Engine, tokens *TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Code = strings.TrimSpace(req.Code)
		if req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}

		team, game, err := eng.JoinTeam(r.Context(), chi.URLParam(r, "slug"), req.Code)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		token, exp, err := tokens.Issue(team.ID, game.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:      token,
			ExpiresAt:  exp,
			TeamID:     team.ID,
			TeamName:   team.Name,
			GameID:     game.ID,
			GameName:   game.Name,
			GameStatus: string(game.Status),
		})
	}
}
