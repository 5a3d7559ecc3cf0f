package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/service"
)

// FulfillmentActor is recorded as the author of carrier-driven status changes.
const FulfillmentActor = "fulfillment"

// StatusUpdater applies a carrier status change. applied is false when the
// order already carries the update.
type StatusUpdater interface {
	ApplyShipmentUpdate(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest, actor string) (order *models.Order, applied bool, err error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// FulfillmentConsumer turns carrier shipment updates into status transitions
type FulfillmentConsumer struct {
	reader  messageReader
	updater StatusUpdater
	log     *logrus.Logger
}

func NewFulfillmentConsumer(brokers []string, topic, groupID string, updater StatusUpdater, logger *logrus.Logger) *FulfillmentConsumer {
	return &FulfillmentConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		updater: updater,
		log:     logger,
	}
}

func (c *FulfillmentConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting fulfillment consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Fulfillment consumer context cancelled, stopping...")
				return ctx.Err()
			}
			c.log.WithError(err).Error("Error reading message")
			time.Sleep(1 * time.Second)
			continue
		}

		if err := c.processMessage(ctx, msg.Value); err != nil {
			c.log.WithError(err).WithField("offset", msg.Offset).Error("Error processing message")
		}
	}
}

func (c *FulfillmentConsumer) processMessage(ctx context.Context, data []byte) error {
	var eventType struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &eventType); err != nil {
		return fmt.Errorf("failed to parse event type: %w", err)
	}

	if eventType.Type != models.EventTypeShipmentUpdate {
		c.log.WithField("type", eventType.Type).Debug("Skipping event")
		return nil
	}

	var event models.ShipmentUpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to parse ShipmentUpdateEvent: %w", err)
	}

	logger := c.log.WithFields(logrus.Fields{"event_id": event.EventID, "order_id": event.OrderID, "status": event.Status})

	note := event.Note
	if note == "" && event.Carrier != "" {
		note = "Update from " + event.Carrier
	}
	_, applied, err := c.updater.ApplyShipmentUpdate(ctx, event.OrderID, models.UpdateStatusRequest{
		Status:         event.Status,
		TrackingNumber: event.TrackingNumber,
		Carrier:        event.Carrier,
		Note:           note,
	}, FulfillmentActor)

	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrUnknownStatus),
		errors.Is(err, lifecycle.ErrTrackingNotAllowed):
		// the event can never apply; drop it
		logger.WithError(err).Warn("Discarding shipment update")
		return nil
	case err != nil:
		return fmt.Errorf("failed to apply shipment update: %w", err)
	case !applied:
		logger.Info("Shipment update already applied, skipping redelivery")
		return nil
	}

	logger.Info("Applied shipment update")
	return nil
}

func (c *FulfillmentConsumer) Close() error {
	return c.reader.Close()
}
