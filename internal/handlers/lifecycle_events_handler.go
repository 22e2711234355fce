package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// LifecycleEventsHandler consumes marketplace lifecycle events from the
// events topic. It is the notification seam: today it logs, later it can
// fan out to seller and buyer notifications.
type LifecycleEventsHandler struct {
	logger logger.Logger
}

// NewLifecycleEventsHandler creates a new LifecycleEventsHandler
func NewLifecycleEventsHandler(logger logger.Logger) *LifecycleEventsHandler {
	return &LifecycleEventsHandler{
		logger: logger,
	}
}

// HandleMessage handles one consumed lifecycle event
func (h *LifecycleEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal lifecycle event", "error", err)
		return fmt.Errorf("failed to unmarshal lifecycle event: %w", err)
	}

	switch event.EventType {
	case models.EventOrderCreated:
		return h.handleOrderCreated(event)
	case models.EventOrderStatusChanged:
		return h.handleOrderStatusChanged(event)
	case models.EventInvoicePaid:
		return h.handleInvoicePaid(event)
	default:
		h.logger.Warn("Unknown lifecycle event type", "eventType", event.EventType)
		return nil
	}
}

func (h *LifecycleEventsHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	h.logger.Info("Order placed",
		"orderID", event.AggregateID,
		"eventID", event.EventID,
		"occurredAt", event.OccurredAt)
	return nil
}

func (h *LifecycleEventsHandler) handleOrderStatusChanged(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid event data format for event %s", event.EventID)
	}

	oldStatus, _ := data["old_status"].(string)
	newStatus, _ := data["new_status"].(string)

	h.logger.Info("Order status changed",
		"orderID", event.AggregateID,
		"oldStatus", oldStatus,
		"newStatus", newStatus)
	return nil
}

func (h *LifecycleEventsHandler) handleInvoicePaid(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid event data format for event %s", event.EventID)
	}

	invoiceNumber, _ := data["invoice_number"].(string)
	amount, _ := data["amount"].(float64)

	h.logger.Info("Invoice settled",
		"invoiceID", event.AggregateID,
		"invoiceNumber", invoiceNumber,
		"amount", amount)
	return nil
}
