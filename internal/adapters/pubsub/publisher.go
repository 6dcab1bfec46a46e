// Package pubsub publishes composite requests to a Google Cloud Pub/Sub
// topic, and decodes the push envelopes Pub/Sub delivers back to workers.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// Publisher sends one JSON-encoded domain.Request per message.
type Publisher struct {
	topic *pubsub.Topic
}

// NewPublisher wraps a topic obtained from a caller-owned client.
func NewPublisher(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Publish encodes req and waits for the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, req domain.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", req.Destination, err)
	}
	return id, nil
}

// Stop flushes pending messages and stops the topic's background goroutines.
func (p *Publisher) Stop() {
	p.topic.Stop()
}
