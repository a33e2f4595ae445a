package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"medconsult-be/internal/config"
	"medconsult-be/pkg/events"
	pktNats "medconsult-be/pkg/nats"

	"github.com/fatih/color"
)

// events_tail follows the conversation event stream on NATS.
func main() {
	subject := flag.String("subject", pktNats.SubjectPrefix+">", "subject filter, e.g. events.TURN_COMPLETED")
	durable := flag.String("durable", "", "durable consumer name; empty replays nothing and follows new events")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}
	if cfg.Events.NatsURL == "" {
		color.Red("NATS_URL is not set")
		os.Exit(1)
	}

	sub, err := pktNats.NewSubscriber(cfg.Events.NatsURL)
	if err != nil {
		color.Red("connect: %v", err)
		os.Exit(1)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, *subject, *durable, func(_ context.Context, e events.Event) error {
		payload, _ := json.Marshal(e.Payload())
		fmt.Printf("%s %s %s\n",
			color.New(color.FgHiBlack).Sprint(e.Timestamp().Format("15:04:05.000")),
			colorFor(e.EventType()).Sprint(e.EventType()),
			payload,
		)
		return nil
	})
	if err != nil {
		color.Red("subscribe: %v", err)
		os.Exit(1)
	}

	color.Cyan("Following %s on %s (Ctrl+C to stop)", *subject, cfg.Events.NatsURL)
	<-ctx.Done()
}

func colorFor(eventType string) *color.Color {
	switch eventType {
	case events.TurnCompleted:
		return color.New(color.FgGreen)
	case events.SessionReset:
		return color.New(color.FgYellow)
	case events.RetrievalCompleted, events.DocumentUploaded:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgMagenta)
	}
}
