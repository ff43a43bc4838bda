// Package events publishes ledger append notifications to a message broker.
package events

import "context"

// Publisher sends a JSON-encoded event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
	Close() error
}

// NoopPublisher discards every event. ledgerd uses it when neither a broker nor
// a webhook target is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }
