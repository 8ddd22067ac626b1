package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/leaderboard"
	"github.com/playperu/qrhunt/internal/store"
	"github.com/playperu/qrhunt/internal/testutil"
)

const (
	testAdminEmail    = "admin@qrhunt.local"
	testAdminPassword = "changeme"
)

type testEnv struct {
	handler http.Handler
	store   *store.SQLiteStore
	engine  *engine.Engine
	bus     *eventbus.Bus
	hunt    testutil.Hunt
}

// newTestEnv wires the full router against a seeded "plaza" hunt in draft.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	st := testutil.OpenStore(t)
	h := testutil.SeedHunt(t, st, "plaza", 2)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}
	if _, err := st.SeedAdmin(ctx, testAdminEmail, string(hash)); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	bus := eventbus.New(logger)
	boards := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Second), logger)
	eng := engine.New(st, boards, bus, logger)

	srv := New(":0", logger, Deps{
		Engine:       eng,
		Boards:       boards,
		Store:        st,
		Admins:       st,
		Bus:          bus,
		Presence:     eventbus.NewPresence(bus, 30*time.Second, logger),
		Tokens:       NewTokenIssuer("test-secret-123", time.Hour),
		PingInterval: time.Minute,
	}, nil)

	return testEnv{handler: srv.Handler(), store: st, engine: eng, bus: bus, hunt: h}
}

func (e testEnv) activate(t *testing.T) {
	t.Helper()
	if _, err := e.engine.Activate(context.Background(), e.hunt.Game.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
}

// do sends a request with an optional JSON body, Bearer token and cookies.
func (e testEnv) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e testEnv) join(t *testing.T, code string) JoinResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/games/plaza/join", JoinRequest{Code: code}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp JoinResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatal("join: expected a token")
	}
	return resp
}

func (e testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: testAdminEmail, Password: testAdminPassword}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}
