// Package kafka publishes audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"skillchain/internal/platform/kafka/producer"
	audit "skillchain/pkg/platform/audit"
)

// Store implements audit.Store by producing events to Kafka. It is
// write-only; downstream consumers own the queryable trail.
type Store struct {
	producer *producer.Producer
	topic    string
}

// New creates a Kafka-backed audit sink.
func New(p *producer.Producer, topic string) *Store {
	return &Store{producer: p, topic: topic}
}

// Append publishes the event to the audit topic, keyed by credential id so
// per-credential ordering is preserved.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.CredentialID),
		Value: payload,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

// ListByCredential is not supported; the Kafka sink is write-only.
func (s *Store) ListByCredential(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit sink does not support reads")
}

// ListRecent is not supported; the Kafka sink is write-only.
func (s *Store) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit sink does not support reads")
}
