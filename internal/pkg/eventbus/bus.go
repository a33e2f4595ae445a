package eventbus

import (
	"context"

	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/events"
	pktNats "medconsult-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the in-process watermill topic every event goes to.
const Topic = "medconsult.events"

// Publisher abstracts event publishing for the conversation services.
type Publisher interface {
	Emit(ctx context.Context, eventType string, data map[string]interface{})
}

// Bus publishes to the in-process pubsub and, when connected, to NATS.
// Publishing never fails a request: errors are logged and dropped.
type Bus struct {
	local  message.Publisher
	remote *pktNats.Publisher
	logger logger.ILogger
}

// New accepts a nil remote publisher when NATS is not configured.
func New(local message.Publisher, remote *pktNats.Publisher, log logger.ILogger) *Bus {
	return &Bus{local: local, remote: remote, logger: log}
}

func (b *Bus) Emit(ctx context.Context, eventType string, data map[string]interface{}) {
	b.Publish(ctx, events.New(eventType, data))
}

func (b *Bus) Publish(ctx context.Context, event events.Event) {
	payload, err := events.Encode(event)
	if err != nil {
		b.logger.Error("EVENTS", "Failed to encode event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", event.EventType())
	if err := b.local.Publish(Topic, msg); err != nil {
		b.logger.Error("EVENTS", "Failed to publish event locally", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}

	if b.remote == nil {
		return
	}
	if err := b.remote.Publish(ctx, event); err != nil {
		b.logger.Warn("EVENTS", "Failed to publish event to NATS", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}
}
