package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/qrhunt/internal/eventbus"
	"github.com/playperu/qrhunt/internal/hunt"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// CreateGame validates settings and stores a new draft game.
func (e *Engine) CreateGame(ctx context.Context, g hunt.Game) (hunt.Game, error) {
	g.Slug = strings.ToLower(strings.TrimSpace(g.Slug))
	if !slugPattern.MatchString(g.Slug) {
		return hunt.Game{}, fmt.Errorf("%w: slug must be 2-63 lowercase letters, digits or dashes", hunt.ErrValidation)
	}
	if strings.TrimSpace(g.Name) == "" {
		return hunt.Game{}, fmt.Errorf("%w: name is required", hunt.ErrValidation)
	}
	if g.RankingMode == "" {
		g.RankingMode = hunt.RankByPoints
	}
	if !g.RankingMode.Valid() {
		return hunt.Game{}, fmt.Errorf("%w: unknown ranking mode %q", hunt.ErrValidation, g.RankingMode)
	}
	if g.BasePoints < 0 || g.TimeBonusMultiplier < 0 || g.TimeBonusWindowMinutes < 0 {
		return hunt.Game{}, fmt.Errorf("%w: points and bonus settings must not be negative", hunt.ErrValidation)
	}
	g.Status = hunt.GameStatusDraft
	return e.store.CreateGame(ctx, g)
}

// NodeInput describes a node to add. Password is hashed before storage.
type NodeInput struct {
	Key       string
	Title     string
	Content   string
	IsStart   bool
	IsEnd     bool
	Activated bool
	Points    int
	Hint      string
	Password  string
}

// AddNode adds a node to a game. Zero points inherit the game's base points.
func (e *Engine) AddNode(ctx context.Context, gameID string, in NodeInput) (hunt.Node, error) {
	g, err := e.store.GameByID(ctx, gameID)
	if err != nil {
		return hunt.Node{}, err
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return hunt.Node{}, fmt.Errorf("%w: key is required", hunt.ErrValidation)
	}
	if in.Points < 0 {
		return hunt.Node{}, fmt.Errorf("%w: points must not be negative", hunt.ErrValidation)
	}

	n := hunt.Node{
		GameID:    g.ID,
		Key:       key,
		Title:     in.Title,
		Content:   in.Content,
		IsStart:   in.IsStart,
		IsEnd:     in.IsEnd,
		Activated: in.Activated,
		Points:    in.Points,
		Hint:      in.Hint,
	}
	if n.Points == 0 {
		n.Points = g.BasePoints
	}
	if n.Title == "" {
		n.Title = key
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return hunt.Node{}, fmt.Errorf("hashing node password: %w", err)
		}
		n.PasswordHash = string(hash)
	}
	return e.store.CreateNode(ctx, n)
}

func (e *Engine) AddEdge(ctx context.Context, gameID, fromNodeID, toNodeID string) (hunt.Edge, error) {
	if fromNodeID == "" || toNodeID == "" || fromNodeID == toNodeID {
		return hunt.Edge{}, fmt.Errorf("%w: an edge needs two distinct nodes", hunt.ErrValidation)
	}
	return e.store.CreateEdge(ctx, hunt.Edge{GameID: gameID, FromNodeID: fromNodeID, ToNodeID: toNodeID})
}

func (e *Engine) AddTeam(ctx context.Context, t hunt.Team) (hunt.Team, error) {
	if _, err := e.store.GameByID(ctx, t.GameID); err != nil {
		return hunt.Team{}, err
	}
	t.Code = strings.TrimSpace(t.Code)
	if t.Code == "" || strings.TrimSpace(t.Name) == "" {
		return hunt.Team{}, fmt.Errorf("%w: code and name are required", hunt.ErrValidation)
	}
	if t.StartNodeID != "" {
		n, err := e.store.NodeByID(ctx, t.StartNodeID)
		if err != nil {
			return hunt.Team{}, err
		}
		if n.GameID != t.GameID {
			return hunt.Team{}, hunt.ErrNodeNotInTeamGame
		}
	}
	return e.store.CreateTeam(ctx, t)
}

// JoinTeam resolves a team by its join code. The first join announces the
// team to viewers.
func (e *Engine) JoinTeam(ctx context.Context, slug, code string) (hunt.Team, hunt.Game, error) {
	g, err := e.store.GameBySlug(ctx, slug)
	if err != nil {
		return hunt.Team{}, hunt.Game{}, err
	}
	t, err := e.store.TeamByCode(ctx, g.ID, strings.TrimSpace(code))
	if err != nil {
		return hunt.Team{}, hunt.Game{}, err
	}
	if g.Status == hunt.GameStatusCompleted {
		return hunt.Team{}, hunt.Game{}, hunt.ErrGameNotActive
	}

	now := e.now()
	first, err := e.store.MarkTeamJoined(ctx, t.ID, now)
	if err != nil {
		return hunt.Team{}, hunt.Game{}, fmt.Errorf("marking team joined: %w", err)
	}
	if first {
		t.JoinedAt = &now
		e.logger.Info("team joined", "game_id", g.ID, "team_id", t.ID)
		e.events.Publish(g.ID, eventbus.ChannelTeamJoined, eventbus.TeamJoinedEvent{
			ID:       t.ID,
			Name:     t.Name,
			LogoURL:  t.LogoURL,
			JoinedAt: now,
		})
	}
	return t, g, nil
}

// Chat relays a team message to the game's viewers.
func (e *Engine) Chat(ctx context.Context, teamID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" || len(message) > 500 {
		return fmt.Errorf("%w: message must be 1-500 characters", hunt.ErrValidation)
	}
	t, err := e.store.TeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	e.events.Publish(t.GameID, eventbus.ChannelChat, eventbus.ChatEvent{
		TeamName:  t.Name,
		Message:   message,
		Timestamp: e.now(),
	})
	return nil
}
