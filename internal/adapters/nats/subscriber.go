package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeReprocessRequests delivers ride ids to handler. Failed messages
// are redelivered up to three times.
func (s *Subscriber) SubscribeReprocessRequests(ctx context.Context, handler func(ctx context.Context, rideID int64) error) error {
	sub, err := s.js.Subscribe(SubjectReprocess+".*", func(msg *nats.Msg) {
		var event RideEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Malformed payloads never succeed
			slog.Warn("drop malformed reprocess request", "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event.RideID); err != nil {
			slog.Warn("reprocess request failed", "ride_id", event.RideID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("ride-reprocessor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
