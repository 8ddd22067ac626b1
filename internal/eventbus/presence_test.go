package eventbus

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func decodeConnection(t *testing.T, ev Event) TeamConnectionEvent {
	t.Helper()
	if ev.Channel != ChannelTeamConnection {
		t.Fatalf("expected team-connection, got %s", ev.Channel)
	}
	var out TeamConnectionEvent
	if err := json.Unmarshal(ev.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestPresenceTransitions(t *testing.T) {
	bus := New(slog.Default())
	sub := bus.Subscribe("g1", ChannelTeamConnection)
	defer sub.Close()

	p := NewPresence(bus, 30*time.Second, slog.Default())
	t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := t0
	p.now = func() time.Time { return clock }

	p.Heartbeat("g1", "t1", "Incas", t0)
	ev := decodeConnection(t, recv(t, sub))
	if !ev.IsConnected || ev.TeamID != "t1" || ev.TeamName != "Incas" {
		t.Fatalf("unexpected connect event: %+v", ev)
	}

	// Repeated heartbeats inside the window are silent.
	p.Heartbeat("g1", "t1", "Incas", t0.Add(10*time.Second))
	clock = t0.Add(30 * time.Second)
	p.Sweep(clock)
	assertEmpty(t, sub)
	if !p.Connected("t1") {
		t.Fatal("team should still be connected")
	}

	p.Sweep(t0.Add(40 * time.Second))
	ev = decodeConnection(t, recv(t, sub))
	if ev.IsConnected {
		t.Fatalf("expected disconnect, got %+v", ev)
	}
	if p.Connected("t1") {
		t.Fatal("team should be disconnected")
	}

	p.Heartbeat("g1", "t1", "Incas", t0.Add(50*time.Second))
	if ev := decodeConnection(t, recv(t, sub)); !ev.IsConnected {
		t.Fatalf("expected reconnect, got %+v", ev)
	}
}

func TestPresenceStaleBeforeSweep(t *testing.T) {
	bus := New(slog.Default())
	p := NewPresence(bus, 30*time.Second, slog.Default())
	t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := t0
	p.now = func() time.Time { return clock }

	p.Heartbeat("g1", "t1", "Incas", t0)
	clock = t0.Add(29 * time.Second)
	if !p.Connected("t1") {
		t.Fatal("team should be connected inside the timeout")
	}

	clock = t0.Add(30 * time.Second)
	if p.Connected("t1") {
		t.Fatal("stale heartbeat should not count as connected")
	}
	if p.Connected("t2") {
		t.Fatal("unknown team should not be connected")
	}
}
