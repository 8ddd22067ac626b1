package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	eng := deps.Engine
	connected := deps.Presence.Connected

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("QR Hunt API", "/openapi.json", "/docs"))

	// Public game routes, {slug} resolved by gameMiddleware.
	r.Post("/api/games/{slug}/join", handleJoin(logger, eng, deps.Tokens))
	r.Group(func(r chi.Router) {
		r.Use(gameMiddleware(deps.Store, logger))
		r.Get("/api/games/{slug}/leaderboard", handleLeaderboard(logger, deps.Boards))
		r.Get("/api/games/{slug}/events", handleEvents(deps.Bus, deps.PingInterval))
		r.Get("/ws/games/{slug}", handleWSStream(logger, deps.Bus, deps.PingInterval))
	})

	// Team routes, Bearer token issued by join.
	r.Group(func(r chi.Router) {
		r.Use(teamAuthMiddleware(deps.Tokens))
		r.Post("/api/scan", handleScan(logger, eng))
		r.Post("/api/hints", handleHint(logger, eng))
		r.Get("/api/progress", handleProgress(logger, eng))
		r.Post("/api/heartbeat", handleHeartbeat(logger, deps.Store, deps.Presence))
		r.Post("/api/chat", handleChat(logger, eng))
	})

	r.Post("/api/admin/login", handleAdminLogin(logger, deps.Admins))
	r.Post("/api/admin/logout", handleAdminLogout(logger, deps.Admins))
	r.Get("/api/admin/me", handleAdminMe(deps.Admins))

	r.Route("/api/admin/games", func(r chi.Router) {
		r.Use(adminAuthMiddleware(deps.Admins))

		r.Get("/", handleAdminListGames(logger, deps.Store))
		r.Post("/", handleAdminCreateGame(logger, eng))
		r.Get("/{gameID}", handleAdminGetGame(logger, deps.Store, connected))
		r.Get("/{gameID}/nodes", handleAdminListNodes(logger, deps.Store))
		r.Post("/{gameID}/nodes", handleAdminCreateNode(logger, eng))
		r.Get("/{gameID}/edges", handleAdminListEdges(logger, deps.Store))
		r.Post("/{gameID}/edges", handleAdminCreateEdge(logger, eng))
		r.Get("/{gameID}/teams", handleAdminListTeams(logger, deps.Store, connected))
		r.Post("/{gameID}/teams", handleAdminCreateTeam(logger, eng))
		r.Post("/{gameID}/{action}", handleAdminTransition(logger, eng))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
