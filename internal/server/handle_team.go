package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
)

type ScanRequest struct {
	NodeKey  string `json:"nodeKey"`
	Password string `json:"password,omitempty"`
}

type HintRequest struct {
	NodeID string `json:"nodeId"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func handleScan(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.NodeKey = strings.TrimSpace(req.NodeKey)
		if req.NodeKey == "" {
			writeError(w, http.StatusBadRequest, "nodeKey is required")
			return
		}

		sess := teamFrom(r)
		res, err := eng.RecordScan(r.Context(), engine.ScanRequest{
			TeamID:    sess.TeamID,
			NodeKey:   req.NodeKey,
			Password:  req.Password,
			ClientIP:  r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		// A locked clue is not a failure: the client resubmits with a password.
		if errors.Is(err, hunt.ErrPasswordRequired) {
			writeJSON(w, http.StatusOK, res)
			return
		}
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleHint(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HintRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.NodeID) == "" {
			writeError(w, http.StatusBadRequest, "nodeId is required")
			return
		}

		res, err := eng.RequestHint(r.Context(), teamFrom(r).TeamID, req.NodeID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleProgress(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := eng.TeamProgress(r.Context(), teamFrom(r).TeamID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleHeartbeat(logger *slog.Logger, teams hunt.Store, presence *eventbus.Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := teamFrom(r)
		team, err := teams.TeamByID(r.Context(), sess.TeamID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		presence.Heartbeat(team.GameID, team.ID, team.Name, time.Now())
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func handleChat(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := eng.Chat(r.Context(), teamFrom(r).TeamID, req.Message); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}
