// Package notifications provides real-time notification delivery over Redis pub/sub.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"

	"engagement/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishPostEvent sends an event payload to everyone watching a post.
func (n *Notifier) PublishPostEvent(
	ctx context.Context, postID uint, payload string,
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, PostChannel(postID), payload).Err()
}

// StartPostSubscriber subscribes to the events of every post and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPostSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.run(ctx, n.rdb.PSubscribe(ctx, "posts:*:events"), "PostSubscriber", onMessage)
}

// SubscribePost subscribes to the events of one post.
func (n *Notifier) SubscribePost(
	ctx context.Context, postID uint, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.run(ctx, n.rdb.Subscribe(ctx, PostChannel(postID)), "PostChannelSubscriber", onMessage)
}

// StartUserSubscriber subscribes to pattern `notifications:user:*`.
func (n *Notifier) StartUserSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.run(ctx, n.rdb.PSubscribe(ctx, "notifications:user:*"), "UserSubscriber", onMessage)
}

func (n *Notifier) run(
	ctx context.Context, sub *redis.PubSub, name string, onMessage func(channel string, payload string),
) error {
	// Wait for the subscription confirmation so callers can publish right away.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in subscriber",
								slog.String("subscriber", name),
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

// PostChannel derives the Redis channel name for a post's events.
func PostChannel(postID uint) string {
	return "posts:" + strconv.FormatUint(uint64(postID), 10) + ":events"
}
