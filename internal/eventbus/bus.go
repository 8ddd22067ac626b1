// Package eventbus fans out per-game domain events to live viewers.
package eventbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Channel string

const (
	ChannelLeaderboard    Channel = "leaderboard"
	ChannelScan           Channel = "scan"
	ChannelChat           Channel = "chat"
	ChannelGameStatus     Channel = "game-status"
	ChannelTeamJoined     Channel = "team-joined"
	ChannelTeamConnection Channel = "team-connection"
)

// Channels lists every channel a viewer can subscribe to.
var Channels = []Channel{
	ChannelLeaderboard,
	ChannelScan,
	ChannelChat,
	ChannelGameStatus,
	ChannelTeamJoined,
	ChannelTeamConnection,
}

// ParseChannels parses a comma separated channel list. An empty list means all channels.
func ParseChannels(raw string) ([]Channel, error) {
	if strings.TrimSpace(raw) == "" {
		return Channels, nil
	}
	var out []Channel
	for _, part := range strings.Split(raw, ",") {
		c := Channel(strings.TrimSpace(part))
		if !c.valid() {
			return nil, fmt.Errorf("unknown channel %q", part)
		}
		out = append(out, c)
	}
	return out, nil
}

func (c Channel) valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// Event is a published message with its JSON-encoded payload.
type Event struct {
	Channel Channel
	Data    []byte
}

const subscriberBuffer = 16

// Bus is an in-process pub/sub keyed by game ID and channel. It keeps no
// history: subscribers only see events published after they joined.
type Bus struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives events for one game on a fixed set of channels.
// Close must be called when the consumer goes away.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	bus      *Bus
	gameID   string
	channels map[Channel]struct{}
	once     sync.Once
}

// Subscribe registers a subscriber for gameID. With no channels given it
// receives every channel.
func (b *Bus) Subscribe(gameID string, channels ...Channel) *Subscription {
	if len(channels) == 0 {
		channels = Channels
	}
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{
		C:        ch,
		ch:       ch,
		bus:      b,
		gameID:   gameID,
		channels: make(map[Channel]struct{}, len(channels)),
	}
	for _, c := range channels {
		s.channels[c] = struct{}{}
	}

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*Subscription]struct{})
	}
	b.subs[gameID][s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		delete(b.subs[s.gameID], s)
		if len(b.subs[s.gameID]) == 0 {
			delete(b.subs, s.gameID)
		}
		b.mu.Unlock()
	})
}

// Publish encodes payload once and offers it to every subscriber of the
// game's channel. Slow subscribers miss the event; Publish never blocks.
func (b *Bus) Publish(gameID string, channel Channel, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("encode event", "channel", channel, "error", err)
		return
	}
	ev := Event{Channel: channel, Data: data}

	dropped := 0
	b.mu.RLock()
	for s := range b.subs[gameID] {
		if _, ok := s.channels[channel]; !ok {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		b.logger.Debug("dropped event for slow subscribers", "game_id", gameID, "channel", channel, "dropped", dropped)
	}
}

// Subscribers returns the number of live subscriptions for a game.
func (b *Bus) Subscribers(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}

type ScanEvent struct {
	TeamName  string    `json:"teamName"`
	NodeName  string    `json:"nodeName"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

type GameStatusEvent struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type TeamJoinedEvent struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LogoURL  string    `json:"logoUrl"`
	JoinedAt time.Time `json:"joinedAt"`
}

type TeamConnectionEvent struct {
	TeamID      string    `json:"teamId"`
	TeamName    string    `json:"teamName"`
	IsConnected bool      `json:"isConnected"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatEvent struct {
	TeamName  string    `json:"teamName"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
