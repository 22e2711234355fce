package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/circuitbreaker"
	"github.com/gasmarket/marketplace-api/pkg/kafka"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// ErrBrokerUnavailable is returned while the circuit breaker is open
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// KafkaHandler publishes outbox messages to the lifecycle events topic,
// guarded by a circuit breaker so a dead broker does not burn every
// message's attempt budget.
type KafkaHandler struct {
	producer *kafka.Producer
	breaker  *circuitbreaker.CircuitBreaker
	topic    string
	logger   logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, breaker *circuitbreaker.CircuitBreaker, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		breaker:  breaker,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage publishes an outbox message, keyed by aggregate ID so all
// events of one order land on the same partition in order
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	if !h.breaker.Allow() {
		return ErrBrokerUnavailable
	}

	err := h.producer.SendMessage(ctx, h.topic, message.AggregateID, message.Payload)
	if err != nil {
		h.breaker.Failure()
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.breaker.Success()
	h.logger.Debug("Published message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"eventType", message.EventType)

	return nil
}
