package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/qrhunt/internal/eventbus"
)

// handleEvents streams a game's events as Server-Sent Events. The optional
// channels query parameter narrows the stream, e.g. ?channels=scan,chat.
func handleEvents(bus *eventbus.Bus, pingInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels, err := eventbus.ParseChannels(r.URL.Query().Get("channels"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		game := gameFrom(r)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sub := bus.Subscribe(game.ID, channels...)
		defer sub.Close()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-sub.C:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Channel, ev.Data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
