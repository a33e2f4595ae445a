package eventbus

import (
	"context"
	"testing"
	"time"

	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReachesLocalSubscribers(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, Topic)
	require.NoError(t, err)

	bus := New(pubSub, nil, logger.NewNopLogger())
	bus.Emit(ctx, events.SessionReset, map[string]interface{}{"session_id": "s-1", "from": "openai", "to": "local"})

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, events.SessionReset, msg.Metadata.Get("type"))
		evt, err := events.Decode(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, events.SessionReset, evt.Type)
		assert.Equal(t, "s-1", evt.Data["session_id"])
		assert.False(t, evt.OccurredAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEmitWithoutSubscribersDoesNotBlock(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	bus := New(pubSub, nil, logger.NewNopLogger())

	done := make(chan struct{})
	go func() {
		bus.Emit(context.Background(), events.TurnCompleted, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked")
	}
}
