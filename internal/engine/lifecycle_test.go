package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
	"github.com/playperu/qrhunt/internal/leaderboard"
	"github.com/playperu/qrhunt/internal/testutil"
)

func newEngine(t *testing.T) (*Engine, hunt.Store, *eventbus.Bus) {
	t.Helper()
	st := testutil.OpenStore(t)
	bus := eventbus.New(slog.Default())
	boards := leaderboard.NewService(st, leaderboard.NewMemoryCache(time.Second), slog.Default())
	return New(st, boards, bus, slog.Default()), st, bus
}

func TestActivateGate(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, hunt.Game{Slug: "gate", Name: "Gate", BasePoints: 10})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	steps := []struct {
		name    string
		add     *NodeInput
		missing []string
	}{
		{
			name:    "no nodes",
			missing: []string{hunt.MissingNodes, hunt.MissingStartNode, hunt.MissingEndNode, hunt.MissingActivatedNode},
		},
		{
			name:    "no start",
			add:     &NodeInput{Key: "plain"},
			missing: []string{hunt.MissingStartNode, hunt.MissingEndNode, hunt.MissingActivatedNode},
		},
		{
			name:    "no end",
			add:     &NodeInput{Key: "start", IsStart: true},
			missing: []string{hunt.MissingEndNode, hunt.MissingActivatedNode},
		},
		{
			name:    "nothing activated",
			add:     &NodeInput{Key: "end", IsEnd: true},
			missing: []string{hunt.MissingActivatedNode},
		},
		{
			name: "ready",
			add:  &NodeInput{Key: "live", Activated: true},
		},
	}

	for _, step := range steps {
		if step.add != nil {
			if _, err := e.AddNode(ctx, g.ID, *step.add); err != nil {
				t.Fatalf("%s: add node: %v", step.name, err)
			}
		}
		_, err := e.Activate(ctx, g.ID)
		if step.missing == nil {
			if err != nil {
				t.Fatalf("%s: activate: %v", step.name, err)
			}
			continue
		}
		var verr *hunt.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: err = %v, want ValidationError", step.name, err)
		}
		if !slices.Equal(verr.Missing, step.missing) {
			t.Errorf("%s: missing = %v, want %v", step.name, verr.Missing, step.missing)
		}
		if !errors.Is(err, hunt.ErrValidation) {
			t.Errorf("%s: ValidationError must unwrap to ErrValidation", step.name)
		}
	}
}

func TestOpenIgnoresActivation(t *testing.T) {
	e, st, _ := newEngine(t)
	ctx := context.Background()
	g, _ := e.CreateGame(ctx, hunt.Game{Slug: "open", Name: "Open"})
	e.AddNode(ctx, g.ID, NodeInput{Key: "s", IsStart: true})
	e.AddNode(ctx, g.ID, NodeInput{Key: "e", IsEnd: true})

	g, err := e.Open(ctx, g.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if g.Status != hunt.GameStatusPending {
		t.Errorf("status = %s, want pending", g.Status)
	}
	if _, err := e.Open(ctx, g.ID); !errors.Is(err, hunt.ErrInvalidTransition) {
		t.Errorf("re-open: err = %v, want invalid transition", err)
	}

	stored, _ := st.GameByID(ctx, g.ID)
	if stored.StartedAt != nil {
		t.Error("open must not stamp a start time")
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from   hunt.GameStatus
		action Action
		ok     bool
	}{
		{hunt.GameStatusDraft, ActionOpen, true},
		{hunt.GameStatusPending, ActionOpen, false},
		{hunt.GameStatusDraft, ActionActivate, true},
		{hunt.GameStatusPending, ActionActivate, true},
		{hunt.GameStatusActive, ActionActivate, false},
		{hunt.GameStatusCompleted, ActionActivate, false},
		{hunt.GameStatusDraft, ActionComplete, false},
		{hunt.GameStatusActive, ActionComplete, true},
		{hunt.GameStatusCompleted, ActionComplete, false},
		{hunt.GameStatusCompleted, ActionReset, true},
		{hunt.GameStatusActive, ActionReset, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			e, st, _ := newEngine(t)
			ctx := context.Background()
			h := testutil.SeedHunt(t, st, "table", 0)
			if err := st.SetGameStatus(ctx, h.Game.ID, tt.from, time.Now()); err != nil {
				t.Fatalf("set status: %v", err)
			}

			_, err := e.Transition(ctx, h.Game.ID, tt.action)
			if tt.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tt.ok && !errors.Is(err, hunt.ErrInvalidTransition) {
				t.Fatalf("err = %v, want invalid transition", err)
			}
		})
	}
}

func TestResetWipesProgress(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()
	team := f.hunt.Teams[0]

	f.mustScan(t, team, f.hunt.Start, "")
	f.mustScan(t, team, f.hunt.Finish, "")
	f.engine.RequestHint(ctx, team.ID, f.hunt.Riddle.ID)

	g, err := f.engine.Reset(ctx, f.hunt.Game.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if g.Status != hunt.GameStatusDraft || g.WinnerTeamID != "" {
		t.Errorf("game after reset: %+v", g)
	}

	p, err := f.engine.TeamProgress(ctx, team.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.NodesFound != 0 || p.TotalPoints != 0 || p.IsFinished {
		t.Errorf("progress after reset: %+v", p)
	}

	// The team can play again once the game is reactivated.
	if _, err := f.engine.Activate(ctx, g.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	f.mustScan(t, team, f.hunt.Start, "")
}

func TestTransitionPublishesStatus(t *testing.T) {
	f := setup(t, 0)
	sub := f.bus.Subscribe(f.hunt.Game.ID, eventbus.ChannelGameStatus)
	defer sub.Close()

	if _, err := f.engine.Complete(context.Background(), f.hunt.Game.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	select {
	case ev := <-sub.C:
		var status eventbus.GameStatusEvent
		if err := json.Unmarshal(ev.Data, &status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if status.Status != "completed" {
			t.Errorf("status = %s, want completed", status.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no game-status event")
	}
}

func TestTransitionUnknownGame(t *testing.T) {
	e, _, _ := newEngine(t)
	if _, err := e.Activate(context.Background(), "ghost"); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
