package notification

import (
	"context"
	"log/slog"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/sse"
)

// LogSink records events in the process log. It is the only sink when no
// broker is configured.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(ctx context.Context, event notification.Event) error {
	slog.InfoContext(ctx, "Leave notification",
		"type", event.Type,
		"user_id", event.UserID,
		"request_id", event.Request.ID,
		"actor_id", event.ActorID,
	)
	return nil
}

// HubSink pushes events to the owner's open event streams.
type HubSink struct {
	hub *sse.Hub
}

func NewHubSink(hub *sse.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (h *HubSink) Name() string { return "sse" }

func (h *HubSink) Deliver(_ context.Context, event notification.Event) error {
	h.hub.Publish(event.UserID, sse.Event{Name: string(event.Type), Data: event})
	return nil
}
