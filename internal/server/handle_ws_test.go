package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/qrhunt/internal/engine"
	"github.com/playperu/qrhunt/internal/eventbus"
)

func waitForSubscriber(t *testing.T, bus *eventbus.Bus, gameID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.Subscribers(gameID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/games/plaza/events?channels=chat", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", got)
	}

	gameID := env.hunt.Game.ID
	waitForSubscriber(t, env.bus, gameID)

	// Filtered out by the channel list.
	env.bus.Publish(gameID, eventbus.ChannelScan, eventbus.ScanEvent{TeamName: "Team A"})
	if err := env.engine.Chat(ctx, env.hunt.Teams[0].ID, "meet at the fountain"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	r := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if event != "chat" {
		t.Fatalf("expected chat event, got %q", event)
	}
	var msg eventbus.ChatEvent
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if msg.TeamName != "Team A" || msg.Message != "meet at the fountain" {
		t.Errorf("unexpected chat event %+v", msg)
	}
}

func TestEventsRejectsUnknownChannel(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/games/plaza/events?channels=scan,gossip", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWSStream(t *testing.T) {
	env := newTestEnv(t)
	env.activate(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws/games/plaza?channels=scan"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	waitForSubscriber(t, env.bus, env.hunt.Game.ID)

	_, err = env.engine.RecordScan(ctx, engine.ScanRequest{TeamID: env.hunt.Teams[0].ID, NodeKey: "start"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Channel != eventbus.ChannelScan {
		t.Fatalf("expected scan channel, got %q", msg.Channel)
	}
	var ev eventbus.ScanEvent
	json.Unmarshal(msg.Data, &ev)
	if ev.TeamName != "Team A" || ev.NodeName != "Town Hall" || ev.Points != 100 {
		t.Errorf("unexpected scan event %+v", ev)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestWSUnknownGame(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/ws/games/nowhere", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
