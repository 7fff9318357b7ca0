package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dolverin/Anime-Library/pkg/interfaces"
)

// Publisher sends raw messages. *Client implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	Type        string           `json:"type"`
	AggregateID string           `json:"aggregate_id"`
	Timestamp   int64            `json:"timestamp"`
	Payload     interfaces.Event `json:"payload"`
}

// Forwarder relays events from the in-process bus to NATS subjects named
// <prefix>.<event type>. Subscribe it with interfaces.AllEvents.
type Forwarder struct {
	pub    Publisher
	prefix string
	logger interfaces.Logger
}

// NewForwarder creates a forwarder publishing through pub.
func NewForwarder(pub Publisher, prefix string, logger interfaces.Logger) *Forwarder {
	return &Forwarder{pub: pub, prefix: prefix, logger: logger}
}

// Handle marshals the event and publishes it.
func (f *Forwarder) Handle(ctx context.Context, event interfaces.Event) error {
	data, err := json.Marshal(Envelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.Timestamp(),
		Payload:     event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := f.Subject(event.EventType())
	if err := f.pub.Publish(subject, data); err != nil {
		return err
	}
	f.logger.Debug("Forwarded event", interfaces.String("subject", subject))
	return nil
}

// EventType names the handler in bus logs.
func (f *Forwarder) EventType() string {
	return "nats-forwarder"
}

// Subject returns the NATS subject for an event type.
func (f *Forwarder) Subject(eventType string) string {
	if f.prefix == "" {
		return eventType
	}
	return f.prefix + "." + eventType
}
