package services

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event channels for entity lifecycle notifications.
const (
	ChannelPostCreated    = "posts.created"
	ChannelPostDeleted    = "posts.deleted"
	ChannelCommentCreated = "comments.created"
	ChannelCommentDeleted = "comments.deleted"
)

// Publisher sends entity lifecycle events to interested consumers.
// A nil Publisher disables event publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// publishEvent sends a JSON payload to the channel, best effort. Event
// delivery never fails the originating operation; problems are logged.
func publishEvent(ctx context.Context, pub Publisher, logger *slog.Logger, channel string, payload any) {
	if pub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WarnContext(ctx, "failed to encode event", "channel", channel, "error", err)
		return
	}
	if _, err := pub.Publish(ctx, channel, data, nil); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "channel", channel, "error", err)
	}
}
