package kafka

import (
	"context"
	"encoding/json"

	"checkout-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OrderEventProducer publishes order lifecycle events, keyed by cart key so
// one customer's events stay ordered within a partition.
type OrderEventProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewOrderEventProducer(brokers []string, topic string, logger *zap.Logger) *OrderEventProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &OrderEventProducer{writer: writer, logger: logger}
}

func (p *OrderEventProducer) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.CartKey),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to write Kafka message",
			zap.String("type", event.Type),
			zap.String("order_number", event.OrderNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *OrderEventProducer) Close() {
	_ = p.writer.Close()
}
