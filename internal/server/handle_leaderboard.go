package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/qrhunt/internal/engine"
)

func handleLeaderboard(logger *slog.Logger, boards engine.Boards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := boards.Board(r.Context(), gameFrom(r).Slug)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, b)
	}
}
