package kafka

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers []kafkago.Header) error
	Close() error
}

type KafkaProducer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer returns a topic-agnostic producer; the topic is set per message.
// The hash balancer keeps every message with the same key (order id) on the
// same partition, preserving per-order ordering.
func NewProducer(brokers []string, logger *zap.Logger) *KafkaProducer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaProducer{writer: writer, logger: logger}
}

func (p *KafkaProducer) Produce(ctx context.Context, topic string, key []byte, value []byte, headers []kafkago.Header) error {
	msg := kafkago.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to produce message to Kafka topic",
			zap.String("topic", topic),
			zap.ByteString("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to produce message: %w", err)
	}
	p.logger.Debug("Produced message to topic", zap.String("topic", topic), zap.ByteString("key", key))
	return nil
}

func (p *KafkaProducer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
