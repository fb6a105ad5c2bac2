// Package events publishes analysis lifecycle events to a RabbitMQ topic
// exchange for downstream consumers (notification and export services).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/chatscopehq/chatscope/internal/logger"
)

const producer = "chatscope-server"

// Routing keys for published events.
const (
	KeyAnalysisCompleted = "analysis.completed"
)

// Meta identifies an event instance on the wire.
type Meta struct {
	// Trace / request correlation ID
	CorrelationID string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID string `json:"id"`
	// Emitting service
	Producer string `json:"producer"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
	// Event name, e.g. analysis.completed
	Type string `json:"type"`
}

// Envelope is the wire format: meta plus a typed payload.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// AnalysisCompleted is the payload for analysis.completed.
type AnalysisCompleted struct {
	ResultID     string `json:"result_id"`
	Platform     string `json:"platform"`
	MessageCount int    `json:"message_count"`
	Participants int    `json:"participants"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// Publisher emits envelopes to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, key string, eventType string, data any) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// NewPublisher dials RabbitMQ and declares the durable topic exchange.
func NewPublisher(url, exchange string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &rmqPublisher{conn: conn, exchange: exchange}, nil
}

func (p *rmqPublisher) Publish(ctx context.Context, key string, eventType string, data any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	env := Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Producer: producer,
			Time:     time.Now().UTC(),
			Type:     eventType,
		},
		Data: data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     env.Meta.ID,
			CorrelationId: uuid.NewString(),
			Timestamp:     env.Meta.Time,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}

	logger.Ctx(ctx).Info("event published", "key", key, "exchange", p.exchange, "event_id", env.Meta.ID)
	return nil
}

func (p *rmqPublisher) Close() error {
	return p.conn.Close()
}
