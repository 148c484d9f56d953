package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"engagement/internal/models"
	"engagement/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventPostReactionUpdated    = "post_reaction_updated"
	EventCommentCreated         = "comment_created"
	EventCommentUpdated         = "comment_updated"
	EventCommentDeleted         = "comment_deleted"
	EventCommentReactionUpdated = "comment_reaction_updated"
	EventPostReposted           = "post_reposted"
	EventPostShared             = "post_shared"

	// User notifications.
	EventMentioned     = "mentioned"
	EventShareReceived = "share_received"
)

func encodeEvent(eventType string, payload map[string]interface{}) (string, error) {
	eventJSON, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	return string(eventJSON), err
}

// publishPostEvent tells everyone watching postID about a change. Delivery is
// best effort: failures are logged, never returned.
func (s *Server) publishPostEvent(ctx context.Context, postID uint, eventType string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	payload["post_id"] = postID
	payload["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	message, err := encodeEvent(eventType, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal event", slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}
	if err := s.notifier.PublishPostEvent(context.WithoutCancel(ctx), postID, message); err != nil {
		s.logger.WarnContext(ctx, "failed to publish post event",
			slog.String("event", eventType),
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()))
		return
	}
	observability.PostEventsPublished.WithLabelValues(eventType).Inc()
}

// notifyUser sends a notification to one user's channel.
func (s *Server) notifyUser(ctx context.Context, userID uint, eventType string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	message, err := encodeEvent(eventType, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal event", slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}
	if err := s.notifier.PublishUser(context.WithoutCancel(ctx), userID, message); err != nil {
		s.logger.WarnContext(ctx, "failed to publish user event",
			slog.String("event", eventType),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
}

func userSummary(user models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.Display(),
	}
}
