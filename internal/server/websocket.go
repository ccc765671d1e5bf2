package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/asdersss/EZ-LLMcouncil/internal/events"
)

// upgradeRequired rejects plain HTTP requests on the stream route and
// verifies the meeting exists before the connection is upgraded, so unknown
// ids get a 404 instead of a doomed WebSocket.
func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := s.coord.Get(c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.Next()
}

// streamMeeting serves one subscriber: the full event history is replayed
// first, then live events until the terminal event closes the stream.
// Heartbeats are synthesized per connection with Seq 0; they are not part of
// the meeting's log.
func (s *Server) streamMeeting(c *websocket.Conn) {
	defer func() { _ = c.Close() }()

	meetingID := c.Params("id")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.coord.Subscribe(ctx, meetingID)
	if err != nil {
		return
	}

	// Read pump: the client never sends data, but reading is the only way
	// to notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := time.Duration(s.registry.Settings().HeartbeatSec) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteJSON(e); err != nil {
				return
			}
			if e.IsTerminal() {
				return
			}
		case <-ticker.C:
			hb := events.Event{
				Type:      events.EventHeartbeat,
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			}
			if err := c.WriteJSON(hb); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
