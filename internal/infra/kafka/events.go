package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arazshah/callyou/internal/core/domain"
	"github.com/arazshah/callyou/internal/core/port"
	"github.com/arazshah/callyou/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   domain.UserEvent  `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Publish sends an account lifecycle event. Failures are logged and never
// surfaced to the caller, so a broker outage cannot fail a request.
func (p *EventPublisher) Publish(ctx context.Context, event domain.UserEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: event.Name,
		UserID:    event.UserID,
		Timestamp: event.OccurredAt.UTC(),
		Version:   schemaVersion,
		Payload:   event,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("marshal event envelope", zap.Error(fmt.Errorf("event %s: %w", event.Name, err)))
		return
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(event.Name),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
	case <-ctx.Done():
		p.logger.Warn("event publish cancelled",
			zap.String("event_type", event.Name),
			zap.String("user_id", event.UserID),
		)
	}
}

// Close shuts down the underlying producer.
func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

var _ port.EventPublisher = (*EventPublisher)(nil)
