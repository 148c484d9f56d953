package server

import (
	"context"
	"errors"
	"log/slog"

	"engagement/internal/models"
	"engagement/internal/notifications"
	"engagement/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventSubscribed is the first frame of a post event socket. Events
// published after it are delivered.
const EventSubscribed = "subscribed"

const postIDLocal = "postID"

// requirePostSocket validates a post event socket request before the
// upgrade, so failures still get a JSON error response.
func (s *Server) requirePostSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if s.notifier == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errors.New("realtime events require Redis")))
	}
	if _, err := s.postRepo.GetByID(c.UserContext(), postID); err != nil {
		return s.respondError(c, err)
	}
	c.Locals(postIDLocal, postID)
	return c.Next()
}

// PostEventsSocket streams the events of one post to a browser as JSON
// text frames, the same payloads published on the post's Redis channel.
func (s *Server) PostEventsSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.ActivePostWatchers.Inc()
		defer observability.ActivePostWatchers.Dec()

		postID, _ := conn.Locals(postIDLocal).(uint)
		watcher := notifications.NewWatcher(conn, postID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err := s.notifier.SubscribePost(ctx, postID, func(_ string, payload string) {
			watcher.TrySend([]byte(payload))
		})
		if err != nil {
			s.logger.Warn("post event subscription failed",
				slog.Uint64("post_id", uint64(postID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"message":"subscription failed"}}`))
			return
		}

		if frame, err := encodeEvent(EventSubscribed, map[string]interface{}{"post_id": postID}); err == nil {
			watcher.TrySend([]byte(frame))
		}

		written := make(chan struct{})
		go func() {
			defer close(written)
			watcher.WritePump()
		}()
		watcher.ReadPump()
		<-written
	})
}
