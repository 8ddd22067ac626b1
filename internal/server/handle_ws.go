package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/qrhunt/internal/eventbus"
)

// StreamMessage is one WebSocket frame of the live game stream.
type StreamMessage struct {
	Channel eventbus.Channel `json:"channel"`
	Data    json.RawMessage  `json:"data"`
}

const wsWriteTimeout = 5 * time.Second

// handleWSStream mirrors the event stream over a WebSocket. Messages sent
// by the client are ignored; reading only detects when it goes away.
func handleWSStream(logger *slog.Logger, bus *eventbus.Bus, pingInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels, err := eventbus.ParseChannels(r.URL.Query().Get("channels"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		game := gameFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())

		sub := bus.Subscribe(game.ID, channels...)
		defer sub.Close()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket stream ended", "game_id", game.ID, "error", ctx.Err())
				return
			case ev := <-sub.C:
				msg, _ := json.Marshal(StreamMessage{Channel: ev.Channel, Data: ev.Data})
				if err := write(ctx, conn, msg); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
