package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/hunt"
)

// AdminGameRequest is the request body for creating a game.
type AdminGameRequest struct {
	Slug                   string  `json:"slug"`
	Name                   string  `json:"name"`
	LogoURL                string  `json:"logoUrl"`
	RankingMode            string  `json:"rankingMode"`
	BasePoints             int     `json:"basePoints"`
	TimeBonusEnabled       bool    `json:"timeBonusEnabled"`
	TimeBonusMultiplier    float64 `json:"timeBonusMultiplier"`
	TimeBonusWindowMinutes int     `json:"timeBonusWindowMinutes"`
	RandomMode             bool    `json:"randomMode"`
}

type AdminGame struct {
	ID                     string     `json:"id"`
	Slug                   string     `json:"slug"`
	Name                   string     `json:"name"`
	LogoURL                string     `json:"logoUrl"`
	Status                 string     `json:"status"`
	RankingMode            string     `json:"rankingMode"`
	BasePoints             int        `json:"basePoints"`
	TimeBonusEnabled       bool       `json:"timeBonusEnabled"`
	TimeBonusMultiplier    float64    `json:"timeBonusMultiplier"`
	TimeBonusWindowMinutes int        `json:"timeBonusWindowMinutes"`
	RandomMode             bool       `json:"randomMode"`
	WinnerTeamID           string     `json:"winnerTeamId,omitempty"`
	StartedAt              *time.Time `json:"startedAt,omitempty"`
	EndedAt                *time.Time `json:"endedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

// AdminGameDetail is a game with its graph and teams.
type AdminGameDetail struct {
	AdminGame
	Nodes []AdminNode `json:"nodes"`
	Edges []AdminEdge `json:"edges"`
	Teams []AdminTeam `json:"teams"`
}

type AdminNodeRequest struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsStart   bool   `json:"isStart"`
	IsEnd     bool   `json:"isEnd"`
	Activated bool   `json:"activated"`
	Points    int    `json:"points"`
	Hint      string `json:"hint"`
	Password  string `json:"password,omitempty"`
}

type AdminNode struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsStart     bool   `json:"isStart"`
	IsEnd       bool   `json:"isEnd"`
	Activated   bool   `json:"activated"`
	Points      int    `json:"points"`
	Hint        string `json:"hint"`
	HasPassword bool   `json:"hasPassword"`
}

type AdminEdgeRequest struct {
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

type AdminEdge struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	ToNodeID   string `json:"toNodeId"`
}

// AdminTeamRequest creates a team. A blank code is generated.
type AdminTeamRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	LogoURL     string `json:"logoUrl"`
	StartNodeID string `json:"startNodeId"`
}

type AdminTeam struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	LogoURL     string     `json:"logoUrl"`
	StartNodeID string     `json:"startNodeId,omitempty"`
	JoinedAt    *time.Time `json:"joinedAt,omitempty"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Connected   bool       `json:"connected"`
}

func toAdminGame(g hunt.Game) AdminGame {
	return AdminGame{
		ID:                     g.ID,
		Slug:                   g.Slug,
		Name:                   g.Name,
		LogoURL:                g.LogoURL,
		Status:                 string(g.Status),
		RankingMode:            string(g.RankingMode),
		BasePoints:             g.BasePoints,
		TimeBonusEnabled:       g.TimeBonusEnabled,
		TimeBonusMultiplier:    g.TimeBonusMultiplier,
		TimeBonusWindowMinutes: g.TimeBonusWindowMinutes,
		RandomMode:             g.RandomMode,
		WinnerTeamID:           g.WinnerTeamID,
		StartedAt:              g.StartedAt,
		EndedAt:                g.EndedAt,
		CreatedAt:              g.CreatedAt,
	}
}

func toAdminNode(n hunt.Node) AdminNode {
	return AdminNode{
		ID:          n.ID,
		Key:         n.Key,
		Title:       n.Title,
		Content:     n.Content,
		IsStart:     n.IsStart,
		IsEnd:       n.IsEnd,
		Activated:   n.Activated,
		Points:      n.Points,
		Hint:        n.Hint,
		HasPassword: n.RequiresPassword(),
	}
}

func toAdminTeam(t hunt.Team, connected bool) AdminTeam {
	return AdminTeam{
		ID:          t.ID,
		Code:        t.Code,
		Name:        t.Name,
		LogoURL:     t.LogoURL,
		StartNodeID: t.StartNodeID,
		JoinedAt:    t.JoinedAt,
		FinishedAt:  t.FinishedAt,
		Connected:   connected,
	}
}

func generateJoinCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "team-" + hex.EncodeToString(b)
}

func handleAdminListGames(logger *slog.Logger, games hunt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := games.ListGames(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]AdminGame, 0, len(list))
		for _, g := range list {
			out = append(out, toAdminGame(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateGame(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := eng.CreateGame(r.Context(), hunt.Game{
			Slug:                   req.Slug,
			Name:                   strings.TrimSpace(req.Name),
			LogoURL:                req.LogoURL,
			RankingMode:            hunt.RankingMode(req.RankingMode),
			BasePoints:             req.BasePoints,
			TimeBonusEnabled:       req.TimeBonusEnabled,
			TimeBonusMultiplier:    req.TimeBonusMultiplier,
			TimeBonusWindowMinutes: req.TimeBonusWindowMinutes,
			RandomMode:             req.RandomMode,
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("game created", "game_id", g.ID, "slug", g.Slug, "admin", adminFrom(r).Email)
		writeJSON(w, http.StatusCreated, toAdminGame(g))
	}
}

func handleAdminGetGame(logger *slog.Logger, games hunt.Store, connected func(teamID string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		g, err := games.GameByID(ctx, chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		nodes, err := games.ListNodes(ctx, g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		edges, err := games.ListEdges(ctx, g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		teams, err := games.ListTeams(ctx, g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}

		detail := AdminGameDetail{
			AdminGame: toAdminGame(g),
			Nodes:     make([]AdminNode, 0, len(nodes)),
			Edges:     make([]AdminEdge, 0, len(edges)),
			Teams:     make([]AdminTeam, 0, len(teams)),
		}
		for _, n := range nodes {
			detail.Nodes = append(detail.Nodes, toAdminNode(n))
		}
		for _, e := range edges {
			detail.Edges = append(detail.Edges, AdminEdge{ID: e.ID, FromNodeID: e.FromNodeID, ToNodeID: e.ToNodeID})
		}
		for _, t := range teams {
			detail.Teams = append(detail.Teams, toAdminTeam(t, connected(t.ID)))
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleAdminCreateNode(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminNodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		n, err := eng.AddNode(r.Context(), chi.URLParam(r, "gameID"), engine.NodeInput{
			Key:       req.Key,
			Title:     strings.TrimSpace(req.Title),
			Content:   req.Content,
			IsStart:   req.IsStart,
			IsEnd:     req.IsEnd,
			Activated: req.Activated,
			Points:    req.Points,
			Hint:      strings.TrimSpace(req.Hint),
			Password:  req.Password,
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAdminNode(n))
	}
}

func handleAdminListNodes(logger *slog.Logger, games hunt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.GameByID(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		nodes, err := games.ListNodes(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]AdminNode, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, toAdminNode(n))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateEdge(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminEdgeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		e, err := eng.AddEdge(r.Context(), chi.URLParam(r, "gameID"), req.FromNodeID, req.ToNodeID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, AdminEdge{ID: e.ID, FromNodeID: e.FromNodeID, ToNodeID: e.ToNodeID})
	}
}

func handleAdminListEdges(logger *slog.Logger, games hunt.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.GameByID(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		edges, err := games.ListEdges(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]AdminEdge, 0, len(edges))
		for _, e := range edges {
			out = append(out, AdminEdge{ID: e.ID, FromNodeID: e.FromNodeID, ToNodeID: e.ToNodeID})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateTeam(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Code) == "" {
			req.Code = generateJoinCode()
		}
		t, err := eng.AddTeam(r.Context(), hunt.Team{
			GameID:      chi.URLParam(r, "gameID"),
			Code:        req.Code,
			Name:        strings.TrimSpace(req.Name),
			LogoURL:     req.LogoURL,
			StartNodeID: req.StartNodeID,
		})
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAdminTeam(t, false))
	}
}

func handleAdminListTeams(logger *slog.Logger, games hunt.Store, connected func(teamID string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.GameByID(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		teams, err := games.ListTeams(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		out := make([]AdminTeam, 0, len(teams))
		for _, t := range teams {
			out = append(out, toAdminTeam(t, connected(t.ID)))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleAdminTransition runs a lifecycle action named by the {action} path segment.
func handleAdminTransition(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action, ok := engine.ParseAction(chi.URLParam(r, "action"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown action")
			return
		}
		g, err := eng.Transition(r.Context(), chi.URLParam(r, "gameID"), action)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("admin transition", "game_id", g.ID, "action", action, "admin", adminFrom(r).Email)
		writeJSON(w, http.StatusOK, toAdminGame(g))
	}
}
