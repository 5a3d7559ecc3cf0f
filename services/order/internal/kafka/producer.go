package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer messageWriter
	log    *logrus.Logger
}

func NewKafkaProducer(brokers []string, topic string, logger *logrus.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: logger,
	}
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func (p *KafkaProducer) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	return p.publish(ctx, event.OrderID, event.Type, event)
}

func (p *KafkaProducer) PublishOrderStatusChanged(ctx context.Context, event models.OrderStatusChangedEvent) error {
	return p.publish(ctx, event.OrderID, event.Type, event)
}

// publish keys by order id so one order's events stay ordered on a partition.
func (p *KafkaProducer) publish(ctx context.Context, orderID uuid.UUID, eventType string, event any) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(orderID.String()),
		Value: eventJSON,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	p.log.WithFields(logrus.Fields{"order_id": orderID, "type": eventType}).Info("Published order event")
	return nil
}
