package service

import (
	"context"
	"testing"
	"time"

	"medconsult-be/internal/pkg/eventbus"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/pkg/metrics"
	"medconsult-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerHandleUpdatesCounters(t *testing.T) {
	m := metrics.New()
	cs := NewConsumerService(nil, eventbus.Topic, m, logger.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, cs.Handle(ctx, events.New(events.SessionCreated, map[string]interface{}{"backend": "openai"})))
	require.NoError(t, cs.Handle(ctx, events.New(events.SessionReset, nil)))
	require.NoError(t, cs.Handle(ctx, events.New(events.TurnCompleted, map[string]interface{}{
		"backend": "local", "outcome": "provider_unavailable", "duration_ms": int64(1500),
	})))
	require.NoError(t, cs.Handle(ctx, events.New(events.DocumentUploaded, map[string]interface{}{"encoding": "text"})))
	require.NoError(t, cs.Handle(ctx, events.New(events.RetrievalCompleted, map[string]interface{}{"kind": "answer"})))
	require.NoError(t, cs.Handle(ctx, events.New(events.ImageAnalyzed, map[string]interface{}{"outcome": "ok"})))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionResets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("local", "provider_unavailable")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TurnDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsUploaded.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalQueries.WithLabelValues("answer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesAnalyzed.WithLabelValues("ok")))
	assert.Equal(t, 6, testutil.CollectAndCount(m.EventsConsumed))
}

func TestConsumerHandleUnknownType(t *testing.T) {
	cs := NewConsumerService(nil, eventbus.Topic, metrics.New(), logger.NewNopLogger())

	err := cs.Handle(context.Background(), events.New("SOMETHING_ELSE", nil))

	assert.Error(t, err)
}

func TestConsumeFromBus(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	m := metrics.New()
	cs := NewConsumerService(pubSub, eventbus.Topic, m, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cs.Consume(ctx) }()

	bus := eventbus.New(pubSub, nil, logger.NewNopLogger())
	assert.Eventually(t, func() bool {
		// the subscription may not exist yet on the first tries
		bus.Emit(ctx, events.SessionReset, map[string]interface{}{"session_id": "s"})
		return testutil.ToFloat64(m.SessionResets) >= 1
	}, time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
