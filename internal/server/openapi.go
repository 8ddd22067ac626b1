package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/leaderboard"
)

// HealthResponse documents the /healthz body. A failing optional
// dependency reports "degraded" with status 200.
type HealthResponse struct {
	Status string            `json:"status" enum:"ok,degraded,error"`
	Checks map[string]string `json:"checks"`
}

type slugPath struct {
	Slug string `path:"slug"`
}

type gamePath struct {
	GameID string `path:"gameID"`
}

type streamQuery struct {
	Slug     string `path:"slug"`
	Channels string `query:"channels" description:"Comma separated channel filter. Empty means all."`
}

type joinInput struct {
	slugPath
	JoinRequest
}

type transitionPath struct {
	GameID string `path:"gameID"`
	Action string `path:"action" enum:"open,activate,complete,reset"`
}

type adminNodeInput struct {
	gamePath
	AdminNodeRequest
}

type adminEdgeInput struct {
	gamePath
	AdminEdgeRequest
}

type adminTeamInput struct {
	gamePath
	AdminTeamRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "QR Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for QR code scavenger hunts.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/games/{slug}/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/games/{slug}/join")
	postJoin.SetSummary("Join a team")
	postJoin.SetDescription("Exchanges a team code for a Bearer token scoped to the team.")
	postJoin.AddReqStructure(joinInput{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	// GET /api/games/{slug}/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/games/{slug}/leaderboard")
	getBoard.SetSummary("Leaderboard")
	getBoard.SetDescription("Ranked teams of a game under its ranking mode.")
	getBoard.AddReqStructure(slugPath{})
	getBoard.AddRespStructure(leaderboard.Board{}, openapi.WithHTTPStatus(http.StatusOK))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getBoard)

	// GET /api/games/{slug}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/games/{slug}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events for a game: leaderboard, scan, chat, game-status, team-joined, team-connection.")
	getEvents.AddReqStructure(streamQuery{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getEvents)

	// GET /ws/games/{slug}
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/games/{slug}")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Same events as the SSE stream, one StreamMessage per frame.")
	getWS.AddReqStructure(streamQuery{})
	getWS.AddRespStructure(StreamMessage{}, openapi.WithHTTPStatus(http.StatusSwitchingProtocols))
	_ = r.AddOperation(getWS)

	// POST /api/scan
	postScan, _ := r.NewOperationContext(http.MethodPost, "/api/scan")
	postScan.SetSummary("Scan a node")
	postScan.SetDescription("Records a QR scan for the team. Requires Bearer token. A locked node answers 200 with passwordRequired.")
	postScan.AddReqStructure(ScanRequest{})
	postScan.AddRespStructure(engine.ScanResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postScan)

	// POST /api/hints
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/hints")
	postHint.SetSummary("Use a hint")
	postHint.SetDescription("Reveals a node's hint at half its points. Repeat requests cost nothing. Requires Bearer token.")
	postHint.AddReqStructure(HintRequest{})
	postHint.AddRespStructure(engine.HintResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postHint)

	// GET /api/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/progress")
	getProgress.SetSummary("Team progress")
	getProgress.SetDescription("Current node, score and reachable nodes for the team. Requires Bearer token.")
	getProgress.AddRespStructure(engine.Progress{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getProgress)

	// POST /api/heartbeat
	postHeartbeat, _ := r.NewOperationContext(http.MethodPost, "/api/heartbeat")
	postHeartbeat.SetSummary("Presence heartbeat")
	postHeartbeat.SetDescription("Marks the team connected. Teams silent past the presence timeout are reported disconnected.")
	postHeartbeat.AddRespStructure(OKResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postHeartbeat)

	// POST /api/chat
	postChat, _ := r.NewOperationContext(http.MethodPost, "/api/chat")
	postChat.SetSummary("Send chat message")
	postChat.SetDescription("Broadcasts a message on the game's chat channel. Requires Bearer token.")
	postChat.AddReqStructure(ChatRequest{})
	postChat.AddRespStructure(OKResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postChat.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postChat)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(OKResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games")
	listGames.SetSummary("List games")
	listGames.SetDescription("Returns all games. Requires admin_session cookie.")
	listGames.AddRespStructure([]AdminGame{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGames)

	// POST /api/admin/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games")
	createGame.SetSummary("Create game")
	createGame.SetDescription("Creates a draft game. Requires admin_session cookie.")
	createGame.AddReqStructure(AdminGameRequest{})
	createGame.AddRespStructure(AdminGame{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createGame)

	// GET /api/admin/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games/{gameID}")
	getGame.SetSummary("Get game")
	getGame.SetDescription("Returns a game with its nodes, edges and teams. Requires admin_session cookie.")
	getGame.AddReqStructure(gamePath{})
	getGame.AddRespStructure(AdminGameDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// GET /api/admin/games/{gameID}/nodes
	listNodes, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games/{gameID}/nodes")
	listNodes.SetSummary("List nodes")
	listNodes.AddReqStructure(gamePath{})
	listNodes.AddRespStructure([]AdminNode{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listNodes)

	// POST /api/admin/games/{gameID}/nodes
	createNode, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games/{gameID}/nodes")
	createNode.SetSummary("Create node")
	createNode.SetDescription("Adds a clue. Zero points inherit the game's base points.")
	createNode.AddReqStructure(adminNodeInput{})
	createNode.AddRespStructure(AdminNode{}, openapi.WithHTTPStatus(http.StatusCreated))
	createNode.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createNode.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createNode)

	// GET /api/admin/games/{gameID}/edges
	listEdges, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games/{gameID}/edges")
	listEdges.SetSummary("List edges")
	listEdges.AddReqStructure(gamePath{})
	listEdges.AddRespStructure([]AdminEdge{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listEdges)

	// POST /api/admin/games/{gameID}/edges
	createEdge, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games/{gameID}/edges")
	createEdge.SetSummary("Create edge")
	createEdge.AddReqStructure(adminEdgeInput{})
	createEdge.AddRespStructure(AdminEdge{}, openapi.WithHTTPStatus(http.StatusCreated))
	createEdge.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(createEdge)

	// GET /api/admin/games/{gameID}/teams
	listTeams, _ := r.NewOperationContext(http.MethodGet, "/api/admin/games/{gameID}/teams")
	listTeams.SetSummary("List teams")
	listTeams.SetDescription("Returns teams with their live connection state.")
	listTeams.AddReqStructure(gamePath{})
	listTeams.AddRespStructure([]AdminTeam{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTeams)

	// POST /api/admin/games/{gameID}/teams
	createTeam, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games/{gameID}/teams")
	createTeam.SetSummary("Create team")
	createTeam.SetDescription("Creates a team. Auto-generates the join code if blank.")
	createTeam.AddReqStructure(adminTeamInput{})
	createTeam.AddRespStructure(AdminTeam{}, openapi.WithHTTPStatus(http.StatusCreated))
	createTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createTeam)

	// POST /api/admin/games/{gameID}/{action}
	transition, _ := r.NewOperationContext(http.MethodPost, "/api/admin/games/{gameID}/{action}")
	transition.SetSummary("Lifecycle transition")
	transition.SetDescription("Runs open, activate, complete or reset. Activation answers 422 with the missing graph requirements.")
	transition.AddReqStructure(transitionPath{})
	transition.AddRespStructure(AdminGame{}, openapi.WithHTTPStatus(http.StatusOK))
	transition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	transition.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(transition)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
