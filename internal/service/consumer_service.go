// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"fmt"

	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/pkg/metrics"
	"medconsult-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

// consumerService turns conversation events into log lines and counters.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	m *metrics.Metrics,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		metrics:    m,
		logger:     log,
	}
}

// Consume subscribes and processes messages until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cs.topicName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			cs.processMessage(ctx, msg)
		}
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to decode event", map[string]interface{}{"error": err.Error(), "message_id": msg.UUID})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}
	if err := cs.Handle(ctx, event); err != nil {
		cs.logger.Warn("CONSUMER", "Event handling failed", map[string]interface{}{"type": event.Type, "error": err.Error()})
	}
	msg.Ack()
}

func (cs *consumerService) Handle(_ context.Context, event events.Event) error {
	data := event.Payload()
	cs.metrics.EventsConsumed.WithLabelValues(event.EventType()).Inc()

	switch event.EventType() {
	case events.SessionCreated:
		cs.metrics.SessionsCreated.WithLabelValues(str(data, "backend")).Inc()
	case events.SessionReset:
		cs.metrics.SessionResets.Inc()
	case events.TurnCompleted:
		backend := str(data, "backend")
		cs.metrics.Turns.WithLabelValues(backend, str(data, "outcome")).Inc()
		if ms, ok := num(data, "duration_ms"); ok {
			cs.metrics.TurnDuration.WithLabelValues(backend).Observe(ms / 1000)
		}
	case events.DocumentUploaded:
		cs.metrics.DocumentsUploaded.WithLabelValues(str(data, "encoding")).Inc()
	case events.RetrievalCompleted:
		cs.metrics.RetrievalQueries.WithLabelValues(str(data, "kind")).Inc()
	case events.ImageAnalyzed:
		cs.metrics.ImagesAnalyzed.WithLabelValues(str(data, "outcome")).Inc()
	default:
		return fmt.Errorf("unknown event type %q", event.EventType())
	}

	cs.logger.Info("CONSUMER", "Event processed", map[string]interface{}{
		"type":        event.EventType(),
		"occurred_at": event.Timestamp(),
		"data":        data,
	})
	return nil
}

func str(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// num reads a number that may have come through JSON (float64) or straight
// from Go code.
func num(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
