package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrplatform/go-notification-engine/internal/shared/rabbitmq"
)

// NotificationCreated is emitted once per recipient when a notification record
// has been persisted, so connected clients can refresh without polling.
type NotificationCreated struct {
	RecordID    string    `json:"record_id"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher emits realtime notification events. Publishing is best-effort:
// implementations never fail the dispatch that triggered them.
type Publisher interface {
	PublishNotificationCreated(event NotificationCreated)
}

// RabbitMQPublisher publishes events to a topic exchange, routed per
// recipient so clients can bind to notifications.user.<id>.
type RabbitMQPublisher struct {
	client   *rabbitmq.RabbitMQClient
	exchange string
	logger   zerolog.Logger
}

// NewRabbitMQPublisher declares the topic exchange and returns a publisher
func NewRabbitMQPublisher(client *rabbitmq.RabbitMQClient, exchange string, logger zerolog.Logger) (*RabbitMQPublisher, error) {
	if err := client.DeclareExchange(exchange, "topic"); err != nil {
		return nil, err
	}

	return &RabbitMQPublisher{
		client:   client,
		exchange: exchange,
		logger:   logger.With().Str("component", "events").Logger(),
	}, nil
}

// PublishNotificationCreated publishes one recipient's event. Failures are
// logged and swallowed: realtime delivery is a convenience, the record in
// MongoDB is the source of truth.
func (p *RabbitMQPublisher) PublishNotificationCreated(event NotificationCreated) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal notification event")
		return
	}

	routingKey := "notifications.user." + event.RecipientID
	if err := p.client.Publish(p.exchange, routingKey, body); err != nil {
		p.logger.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish notification event")
	}
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

// PublishNotificationCreated does nothing
func (NopPublisher) PublishNotificationCreated(NotificationCreated) {}
