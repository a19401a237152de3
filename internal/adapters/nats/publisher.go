package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/expedition/internal/core/domain"
)

// Subjects of the RIDES stream. Every event is published on
// "<subject>.<ride id>".
const (
	StreamName = "RIDES"

	SubjectRideCreated = "ride.created"
	SubjectRideDeleted = "ride.deleted"
	SubjectWaysUpdated = "ride.ways"
	SubjectReprocess   = "ride.reprocess"

	// SubjectAll matches every ride event; used by the WebSocket relay.
	SubjectAll = "ride.>"
)

// RideEvent is the payload of every message on the RIDES stream.
type RideEvent struct {
	Type   string              `json:"type"`
	RideID int64               `json:"ride_id"`
	Ride   *domain.RideSummary `json:"ride,omitempty"`
	Ways   []domain.Way        `json:"ways,omitempty"`
	At     time.Time           `json:"at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the RIDES stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAll},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// RideSubject returns the subject of an event about one ride.
func RideSubject(subject string, rideID int64) string {
	return subject + "." + strconv.FormatInt(rideID, 10)
}

func (p *Publisher) publish(ctx context.Context, subject string, event RideEvent) error {
	event.Type = subject
	event.At = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RideSubject(subject, event.RideID), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishRideCreated(ctx context.Context, ride *domain.RideSummary) error {
	return p.publish(ctx, SubjectRideCreated, RideEvent{RideID: ride.ID, Ride: ride})
}

func (p *Publisher) PublishRideDeleted(ctx context.Context, id int64) error {
	return p.publish(ctx, SubjectRideDeleted, RideEvent{RideID: id})
}

func (p *Publisher) PublishWaysUpdated(ctx context.Context, id int64, ways []domain.Way) error {
	return p.publish(ctx, SubjectWaysUpdated, RideEvent{RideID: id, Ways: ways})
}

func (p *Publisher) PublishReprocessRequest(ctx context.Context, id int64) error {
	return p.publish(ctx, SubjectReprocess, RideEvent{RideID: id})
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("expedition"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
