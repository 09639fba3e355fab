package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/feedbridge/store"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// handleActivityTail streams activities to a websocket client as they are
// published. An optional actor query parameter narrows the tail to a single
// actor's timeline.
func (g *Gateway) handleActivityTail(w http.ResponseWriter, r *http.Request) {
	if g.nats == nil {
		http.Error(w, "activity tail unavailable", http.StatusServiceUnavailable)
		return
	}

	subject := store.ActivitySubjectPrefix + ">"
	if actor := r.URL.Query().Get("actor"); actor != "" {
		subject = store.ActivitySubjectPrefix + actor
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Buffered so a slow client sheds messages instead of blocking the
	// NATS callback.
	send := make(chan []byte, wsSendBuffer)
	ctx := r.Context()

	unsubscribe, err := g.nats.SubscribeWithCancel(ctx, subject,
		func(_ context.Context, data []byte) {
			select {
			case send <- data:
			default:
				g.logger.Debug("activity tail client is slow, dropping message",
					"subject", subject)
			}
		})
	if err != nil {
		g.logger.Error("activity tail subscription failed",
			"subject", subject, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(wsWriteTimeout))
		return
	}
	defer unsubscribe()

	g.logger.Info("activity tail attached", "subject", subject, "remote", r.RemoteAddr)

	// Read loop: the client sends nothing meaningful, but reading drives
	// pong handling and surfaces disconnects.
	done := make(chan struct{})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case data := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
