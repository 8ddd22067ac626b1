package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type presenceEntry struct {
	gameID   string
	teamName string
	lastSeen time.Time
}

// Presence turns team heartbeats into team-connection events. A team is
// connected while its last heartbeat is younger than the timeout.
type Presence struct {
	bus     *Bus
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	teams map[string]*presenceEntry
}

func NewPresence(bus *Bus, timeout time.Duration, logger *slog.Logger) *Presence {
	return &Presence{
		bus:     bus,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		teams:   make(map[string]*presenceEntry),
	}
}

// Heartbeat records that a team was seen at now. The first heartbeat after
// a disconnect publishes a connected event.
func (p *Presence) Heartbeat(gameID, teamID, teamName string, now time.Time) {
	p.mu.Lock()
	e, ok := p.teams[teamID]
	if ok {
		e.lastSeen = now
		e.teamName = teamName
	} else {
		p.teams[teamID] = &presenceEntry{gameID: gameID, teamName: teamName, lastSeen: now}
	}
	p.mu.Unlock()

	if !ok {
		p.logger.Info("team connected", "game_id", gameID, "team_id", teamID)
		p.bus.Publish(gameID, ChannelTeamConnection, TeamConnectionEvent{
			TeamID:      teamID,
			TeamName:    teamName,
			IsConnected: true,
			Timestamp:   now,
		})
	}
}

// Connected reports whether the team has a live heartbeat. A heartbeat
// past the timeout counts as gone even before the next sweep.
func (p *Presence) Connected(teamID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.teams[teamID]
	return ok && p.now().Sub(e.lastSeen) < p.timeout
}

// Sweep disconnects every team whose heartbeat is older than the timeout.
func (p *Presence) Sweep(now time.Time) {
	type gone struct {
		teamID string
		entry  presenceEntry
	}
	var expired []gone

	p.mu.Lock()
	for id, e := range p.teams {
		if now.Sub(e.lastSeen) >= p.timeout {
			expired = append(expired, gone{teamID: id, entry: *e})
			delete(p.teams, id)
		}
	}
	p.mu.Unlock()

	for _, g := range expired {
		p.logger.Info("team disconnected", "game_id", g.entry.gameID, "team_id", g.teamID)
		p.bus.Publish(g.entry.gameID, ChannelTeamConnection, TeamConnectionEvent{
			TeamID:      g.teamID,
			TeamName:    g.entry.teamName,
			IsConnected: false,
			Timestamp:   now,
		})
	}
}

// Run sweeps on every tick until ctx is done.
func (p *Presence) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			p.Sweep(now)
		}
	}
}
